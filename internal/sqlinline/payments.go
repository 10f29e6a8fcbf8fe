package sqlinline

const QInsertPendingPayment = `--sql 5a1198d9-7e45-4e52-a822-b09a927b3f25
insert into payment_transactions (user_id, provider, status, currency, amount, credits_to_grant, metadata)
values ($1::text, 'polar', 'pending', $2::text, $3::int, $4::int, coalesce($5::jsonb, '{}'::jsonb))
returning id::text;
`

const QAttachCheckout = `--sql 14c79403-e414-4048-889d-09bd29bce295
update payment_transactions
set checkout_id = $2::text,
    metadata = metadata || $3::jsonb,
    updated_at = now()
where id = $1::uuid;
`

const QFailPayment = `--sql 23739c00-cbe1-4f92-9f47-c94c0e4efa97
update payment_transactions
set status = 'failed',
    metadata = metadata || $2::jsonb,
    updated_at = now()
where id = $1::uuid
  and status = 'pending';
`

const QMarkPaymentPaid = `--sql 5a7953d0-fbcd-4d52-b980-cfd31a50dd2e
update payment_transactions
set status = 'paid',
    paid_at = coalesce(paid_at, now()),
    provider_order_id = coalesce($2::text, provider_order_id),
    customer_id = coalesce($3::text, customer_id),
    amount = coalesce($4::int, amount),
    currency = coalesce($5::text, currency),
    updated_at = now()
where id = $1::uuid;
`

// QClaimReceiptEmail sets the claim marker only when no claim or send marker exists, so at most
// one webhook delivery wins the right to send the receipt.
const QClaimReceiptEmail = `--sql 644f7846-935c-4781-8e4b-fc73572dc1b6
update payment_transactions
set metadata = metadata || jsonb_build_object('receipt_email_claimed_at', now()),
    updated_at = now()
where id = $1::uuid
  and status = 'paid'
  and not (metadata ? 'receipt_email_claimed_at')
  and not (metadata ? 'receipt_email_sent_at')
returning user_id, currency, amount, credits_to_grant, metadata;
`

const QMarkReceiptSent = `--sql 3dac5a17-0eab-468f-b6ec-85030c426014
update payment_transactions
set metadata = (metadata - 'receipt_email_claimed_at') || jsonb_build_object('receipt_email_sent_at', now()),
    updated_at = now()
where id = $1::uuid;
`

const QReleaseReceiptClaim = `--sql acf5afea-cbcf-4a65-b8c9-e1ed11d6c9a1
update payment_transactions
set metadata = metadata - 'receipt_email_claimed_at',
    updated_at = now()
where id = $1::uuid
  and not (metadata ? 'receipt_email_sent_at');
`
