package sqlinline

const QSelectReview = `--sql e3629a0e-4b21-4024-96bc-5524521abd6c
select id::text, user_id, generation_id, rating, comment, created_at, updated_at
from generation_reviews
where user_id = $1::text
  and generation_id = $2::text
limit 1;
`

const QUpsertReview = `--sql ba073699-8e15-412d-afec-32a74dc1645b
insert into generation_reviews (user_id, generation_id, rating, comment)
values ($1::text, $2::text, $3::int, $4::text)
on conflict (user_id, generation_id) do update set
    rating = excluded.rating,
    comment = excluded.comment,
    updated_at = now()
returning id::text, user_id, generation_id, rating, comment, created_at, updated_at;
`
