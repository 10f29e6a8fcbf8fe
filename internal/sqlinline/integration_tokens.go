package sqlinline

const QSelectIntegrationToken = `--sql 0ca7b235-7b8e-4f02-b9b6-0d9d56753a50
select token
from integration_tokens
where provider = $1::text
  and token <> ''
limit 1;
`

const QUpsertIntegrationToken = `--sql 6d9b242c-4b76-4b38-a447-6e696f93152e
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
