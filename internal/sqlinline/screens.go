package sqlinline

const QGetScreen = `--sql 822aa13f-8f76-4c37-b31d-2429f62aba25
select id, coalesce(effect_api, '{}'::bigint[]), coalesce(group_flags, '{}'::jsonb)
from screens
where id = $1::text;
`

const QUpsertScreenEffects = `--sql 0803f563-c1f4-4fbf-915d-62f3d5ac9f26
insert into screens (id, effect_api, group_flags)
values ($1::text, $2::bigint[], '{}'::jsonb)
on conflict (id) do update set
    effect_api = excluded.effect_api;
`

const QUpsertScreenGroupFlag = `--sql 00220586-188b-4e1c-af2c-fad07266fbc9
insert into screens (id, effect_api, group_flags)
values ($1::text, '{}'::bigint[], jsonb_build_object($2::text, $3::boolean))
on conflict (id) do update set
    group_flags = coalesce(screens.group_flags, '{}'::jsonb) || excluded.group_flags;
`
