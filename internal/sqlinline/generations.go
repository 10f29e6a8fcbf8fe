package sqlinline

const QSelectGeneration = `--sql 65f32e06-1a62-45b6-a377-87eae211fb74
select id::text, user_id, original_image_path, options, status
from generations
where id = $1::uuid
limit 1;
`

const QInsertGeneration = `--sql 8b53a6dd-9a3e-4b7d-a331-da3ab408d8fb
insert into generations (user_id, original_image_path, prompt_used, options, status, credits_used, model_provider, model_name)
values ($1::text, $2::text, $3::text, coalesce($4::jsonb, '{}'::jsonb), $5::text, $6::int, $7::text, $8::text)
returning id::text, options;
`

const QMarkGenerationProcessing = `--sql 9387c907-e95f-40b3-ac6e-b9a31629f6de
update generations
set prompt_used = $2::text,
    status = 'processing',
    error_message = null,
    credits_used = $3::int,
    model_provider = $4::text,
    model_name = $5::text,
    options = $6::jsonb,
    updated_at = now()
where id = $1::uuid;
`

const QCompleteGeneration = `--sql 68432b22-063a-4325-91bd-09d41b8baeaf
update generations
set status = 'completed',
    error_message = null,
    generated_image_path = $2::text,
    options = $3::jsonb,
    updated_at = now()
where id = $1::uuid
  and status = 'processing';
`

const QFailGeneration = `--sql 4d769bc3-271b-4bc0-b472-c784a5019041
update generations
set status = 'failed',
    error_message = $2::text,
    updated_at = now()
where id = $1::uuid
  and status = 'processing';
`

const QUpdateGenerationPrompt = `--sql d882af9a-3562-42b1-b776-9b2d2948a0e7
update generations
set prompt_used = $2::text,
    options = $3::jsonb,
    updated_at = now()
where id = $1::uuid;
`

const QListRecentGenerations = `--sql f035ecea-3948-4606-bc2a-1b4154afcdac
select id::text, created_at, prompt_used, status
from generations
where user_id = $1::text
order by created_at desc
limit $2::int;
`

// QReapStaleGenerations fails generations stuck in processing. Rows locked by a concurrent
// sweeper are skipped.
const QReapStaleGenerations = `--sql 5efe99e3-2159-458f-b50c-3f29ee7166f7
with stale as (
    select id
    from generations
    where status = 'processing'
      and updated_at < now() - make_interval(secs => $1::int)
    order by updated_at asc
    for update skip locked
    limit $2::int
)
update generations g
set status = 'failed',
    error_message = $3::text,
    updated_at = now()
from stale
where g.id = stale.id
returning g.id::text, g.user_id;
`
