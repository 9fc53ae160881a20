package sqlinline

const QListEffects = `--sql c367c733-912d-4039-816a-aeee6b69f052
select
    e.id,
    e.name,
    e.api_name,
    coalesce(e.endpoint, ''),
    coalesce(e.api_key, ''),
    coalesce(e.preview, ''),
    coalesce(e.active_effect_type, ''),
    e.is_visible,
    coalesce((
        select json_agg(json_build_object('id', p.id, 'name', p.name, 'value', p.value)
                        order by array_position(e.params_array, p.id))
        from effect_params p
        where p.id = any(e.params_array)
    ), '[]'::json)
from effects e
order by e.id;
`

const QGetEffect = `--sql 4891ec96-d61f-4f7c-b650-ba05b0863e81
select
    e.id,
    e.name,
    e.api_name,
    coalesce(e.endpoint, ''),
    coalesce(e.api_key, ''),
    coalesce(e.preview, ''),
    coalesce(e.active_effect_type, ''),
    e.is_visible,
    coalesce((
        select json_agg(json_build_object('id', p.id, 'name', p.name, 'value', p.value)
                        order by array_position(e.params_array, p.id))
        from effect_params p
        where p.id = any(e.params_array)
    ), '[]'::json)
from effects e
where e.id = $1::bigint;
`

// QCreateEffect inserts the param rows and the effect in one statement.
// $7 and $8 are parallel name/value arrays.
const QCreateEffect = `--sql a92b6277-1ba5-4ec0-ba3e-d607b968142f
with p as (
    insert into effect_params (name, value, position)
    select t.name, t.value, t.ord
    from unnest($7::text[], $8::text[]) with ordinality as t(name, value, ord)
    returning id, position
)
insert into effects (name, api_name, endpoint, api_key, preview, active_effect_type, is_visible, params_array)
values (
    $1::text, $2::text, $3::text, nullif($4::text, ''), $5::text, $6::text, $9::boolean,
    (select coalesce(array_agg(id order by position), '{}'::bigint[]) from p)
)
returning id, params_array;
`

// QUpdateEffect replaces the effect's own params and updates the row. No
// params are written when the effect does not exist.
const QUpdateEffect = `--sql 7532ae10-f270-46bf-8cd1-b36f84292b1a
with old as (
    select params_array from effects where id = $1::bigint
), dropped as (
    delete from effect_params
    where id = any(coalesce((select params_array from old), '{}'::bigint[]))
), p as (
    insert into effect_params (name, value, position)
    select t.name, t.value, t.ord
    from unnest($8::text[], $9::text[]) with ordinality as t(name, value, ord)
    where exists (select 1 from old)
    returning id, position
)
update effects set
    name = $2::text,
    api_name = $3::text,
    endpoint = $4::text,
    api_key = nullif($5::text, ''),
    preview = $6::text,
    active_effect_type = $7::text,
    is_visible = $10::boolean,
    params_array = (select coalesce(array_agg(id order by position), '{}'::bigint[]) from p)
where id = $1::bigint
returning params_array;
`

const QDeleteEffect = `--sql a2e36e62-6e14-4981-82f7-994038bd4b85
with removed as (
    delete from effects where id = $1::bigint returning params_array
), params as (
    delete from effect_params p
    using removed r
    where p.id = any(r.params_array)
    returning p.id
)
select (select count(*) from removed), (select count(*) from params);
`
