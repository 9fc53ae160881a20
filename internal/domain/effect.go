package domain

import (
	"strconv"
	"strings"
)

// Provider names stored in the effects table.
const (
	ProviderAILab       = "ailabapi"
	ProviderAILabBG     = "ailabapi-bg-removal"
	ProviderLightX      = "lightx"
	ProviderFluxKontext = "bfl-flux-kontext"
	ProviderGemini      = "gemini"
)

// EffectGroup is the coarse category used for picker tabs and per-screen toggles.
type EffectGroup string

const (
	GroupCartoon           EffectGroup = "cartoon"
	GroupCaricature        EffectGroup = "caricature"
	GroupSketch            EffectGroup = "sketch"
	GroupUniverse          EffectGroup = "universe"
	GroupGenerativeEdit    EffectGroup = "generative-edit"
	GroupBackgroundRemoval EffectGroup = "background-removal"
)

// EffectGroups lists every known group in picker order.
var EffectGroups = []EffectGroup{
	GroupCartoon,
	GroupCaricature,
	GroupSketch,
	GroupUniverse,
	GroupGenerativeEdit,
	GroupBackgroundRemoval,
}

// ParseEffectGroup normalises a free-form group name.
func ParseEffectGroup(raw string) (EffectGroup, bool) {
	g := EffectGroup(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range EffectGroups {
		if g == known {
			return g, true
		}
	}
	return "", false
}

// Param is a static name/value pair sent with every invocation of an effect.
// Each row belongs to exactly one effect.
type Param struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EffectDefinition is one entry of the admin-managed effect catalog.
type EffectDefinition struct {
	ID              int64       `json:"id"`
	DisplayName     string      `json:"displayName"`
	ProviderName    string      `json:"providerName"`
	Endpoint        string      `json:"endpoint"`
	AuthKeyRef      string      `json:"authKeyRef,omitempty"`
	StaticParams    []Param     `json:"staticParams"`
	PreviewAssetURL string      `json:"previewAssetUrl"`
	IsVisible       bool        `json:"isVisible"`
	EffectGroup     EffectGroup `json:"effectGroup"`
}

// Param returns the value of the first static param with the given name.
func (e EffectDefinition) Param(name string) (string, bool) {
	for _, p := range e.StaticParams {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}
	return "", false
}

// variantParams name the static params that identify an effect's style,
// in order of preference.
var variantParams = []string{"type", "style", "index"}

// controlParams tune how a provider runs a job and never identify a style.
var controlParams = map[string]bool{
	"task_type":     true,
	"return_form":   true,
	"output_format": true,
	"aspect_ratio":  true,
	"prompt":        true,
	"textprompt":    true,
	"styleimageurl": true,
}

// SelectorKey returns the slug guests' screens use to pick this effect,
// e.g. "cartoon_jpcartoon". The variant comes from the first of type,
// style or index, then from any non-control param, then from the display
// name.
func (e EffectDefinition) SelectorKey() string {
	variant := ""
	for _, name := range variantParams {
		if v, ok := e.Param(name); ok && strings.TrimSpace(v) != "" {
			variant = v
			break
		}
	}
	if variant == "" {
		for _, p := range e.StaticParams {
			if !controlParams[strings.ToLower(p.Name)] && strings.TrimSpace(p.Value) != "" {
				variant = p.Value
				break
			}
		}
	}
	if variant == "" {
		variant = e.DisplayName
	}
	variant = strings.Join(strings.Fields(strings.ToLower(variant)), "_")
	return string(e.EffectGroup) + "_" + variant
}

// Matches reports whether key selects this effect, either by id or slug.
func (e EffectDefinition) Matches(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	return key == strconv.FormatInt(e.ID, 10) || key == e.SelectorKey()
}

// ScreenConfig is the per-screen allow-list plus group enable flags.
type ScreenConfig struct {
	ID           string               `json:"id"`
	EffectIDs    []int64              `json:"effectIds"`
	GroupEnabled map[EffectGroup]bool `json:"groupEnabled"`
}

// Allows reports whether the screen permits the effect. Groups without an
// explicit flag are enabled.
func (s ScreenConfig) Allows(e EffectDefinition) bool {
	if enabled, ok := s.GroupEnabled[e.EffectGroup]; ok && !enabled {
		return false
	}
	for _, id := range s.EffectIDs {
		if id == e.ID {
			return true
		}
	}
	return false
}
