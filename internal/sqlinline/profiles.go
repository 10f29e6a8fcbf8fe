package sqlinline

const QEnsureUserProfile = `--sql 5ac2d4f0-0b6a-490f-9558-8ead17dafaa5
select user_id, email, display_name, credits, created_at, updated_at
from ensure_user_profile($1::text, $2::text, $3::text, $4::int);
`

const QSelectUserContact = `--sql 1bb2bec9-7526-4365-8ed0-a0aaa2d6b837
select email, display_name, credits
from user_profiles
where user_id = $1::text
limit 1;
`

const QSelectLatestPaidPlan = `--sql dc2d24bf-b9c2-4c65-8ffd-53f271a993c0
select coalesce(metadata->>'plan', '')
from payment_transactions
where user_id = $1::text
  and status = 'paid'
order by paid_at desc nulls last, created_at desc
limit 1;
`
