package sqlinline

const QConsumeCredits = `--sql 44acd80c-3bec-4ffc-a376-f4b191c41e85
select consume_credits($1::text, $2::uuid, $3::int, $4::text, $5::jsonb)::text;
`

const QGrantCredits = `--sql 1f4706c5-5979-45a1-92b8-0edba436f1aa
select grant_credits($1::text, $2::int, $3::text, $4::text, $5::jsonb, $6::uuid, $7::uuid)::text;
`

const QApplyPaymentCredits = `--sql 41c481d2-3132-440d-87f7-75bd151a2b31
select apply_payment_credits($1::uuid, $2::text)::text;
`

const QSelectCreditBalance = `--sql f1809877-497b-4cb9-a03b-5c0ab8dba9bd
select credits
from user_profiles
where user_id = $1::text
limit 1;
`

// QSelectOutstandingCharge returns usage a user was charged for a generation minus refunds already issued.
const QSelectOutstandingCharge = `--sql 72ca5807-0c15-4f13-9d9b-c6c075487bfc
select
    coalesce(sum(-amount) filter (where entry_type = 'usage'), 0)
    - coalesce(sum(amount) filter (where entry_type = 'refund'), 0)
from credit_ledger
where generation_id = $1::uuid
  and user_id = $2::text;
`
