package sqlinline

const QInsertPhoto = `--sql a4a79eeb-0f89-4aea-9f94-cafab7b00bfd
insert into photos (url, original_url, event_id, stand_id, screen_type, filter_name, magical_effect, normal_effect)
values ($1::text, nullif($2::text, ''), $3::text, $4::text, $5::text, nullif($6::text, ''), nullif($7::text, ''), nullif($8::text, ''))
returning id::text, created_at;
`

const QGetPhoto = `--sql acc20314-26bb-47f8-9fda-3f26bec80ce7
select id::text, url, coalesce(original_url, ''), event_id, stand_id, screen_type,
       coalesce(filter_name, ''), coalesce(magical_effect, ''), coalesce(normal_effect, ''), created_at
from photos
where id = $1::uuid;
`

const QListPhotosByEvent = `--sql aee76233-6e45-478d-a0fe-fc6b10197d8b
select id::text, url, coalesce(original_url, ''), event_id, stand_id, screen_type,
       coalesce(filter_name, ''), coalesce(magical_effect, ''), coalesce(normal_effect, ''), created_at
from photos
where event_id = $1::text
order by created_at desc;
`
