package mysql

const insertReviewSQL = `
INSERT INTO reviews
  (connection_id, explorer_id, as_user_id, rating, comment,
   service_quality_rating, punctuality_rating, communication_rating, value_for_money_rating,
   would_hire_again, recommend_to_others, photos)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const deleteObligationSQL = `
DELETE FROM review_obligations WHERE connection_id = ?
`

const lockObligationSQL = `
SELECT connection_id FROM review_obligations
WHERE connection_id = ? AND explorer_id = ?
FOR UPDATE
`

// Idempotent, and review-aware: re-sweeping an already-materialized connection
// is a no-op, and a connection that gained a review since the candidate list
// was loaded inserts nothing. An obligation must never coexist with a review.
const upsertObligationSQL = `
INSERT INTO review_obligations (connection_id, explorer_id, review_due_date)
SELECT c.id, c.explorer_id, ?
FROM service_connections c
LEFT JOIN reviews r ON r.connection_id = c.id
WHERE c.id = ? AND c.explorer_id = ? AND r.id IS NULL
ON DUPLICATE KEY UPDATE review_due_date = review_obligations.review_due_date
`

const insertConnectionSQL = `
INSERT INTO service_connections (explorer_id, as_user_id, service_title, status)
VALUES (?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Obligations joined with their connection and the professional's identity.
// Ordered by due date ascending so the most urgent obligation comes first.
const listObligationsSQL = `
SELECT
  o.connection_id,
  o.explorer_id,
  c.as_user_id,
  u.first_name,
  u.last_name,
  u.profile_image,
  u.verification_status,
  c.service_title,
  c.service_completed_at,
  c.final_agreed_price,
  o.review_due_date,
  o.is_blocking
FROM review_obligations o
JOIN service_connections c ON c.id = o.connection_id
JOIN users u ON u.id = c.as_user_id
WHERE o.explorer_id = ?
ORDER BY o.review_due_date ASC, o.connection_id ASC
`

const getObligationSQL = `
SELECT
  o.connection_id,
  o.explorer_id,
  c.as_user_id,
  u.first_name,
  u.last_name,
  u.profile_image,
  u.verification_status,
  c.service_title,
  c.service_completed_at,
  c.final_agreed_price,
  o.review_due_date,
  o.is_blocking
FROM review_obligations o
JOIN service_connections c ON c.id = o.connection_id
JOIN users u ON u.id = c.as_user_id
WHERE o.explorer_id = ? AND o.connection_id = ?
`

// Completed connections with neither a review nor an obligation row yet.
const listCompletedWithoutReviewSQL = `
SELECT
  c.id,
  c.explorer_id,
  c.as_user_id,
  c.service_title,
  c.status,
  c.final_agreed_price,
  c.service_completed_at
FROM service_connections c
LEFT JOIN reviews r ON r.connection_id = c.id
LEFT JOIN review_obligations o ON o.connection_id = c.id
WHERE c.status = 'completed'
  AND c.service_completed_at IS NOT NULL
  AND r.id IS NULL
  AND o.connection_id IS NULL
ORDER BY c.service_completed_at ASC
LIMIT ?
`
