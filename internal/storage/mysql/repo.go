package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"fixia/internal/domain"
)

func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

const duplicateEntryErrNo = 1062

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// SubmitReview inserts the review and removes the matching obligation in one
// transaction. The obligation row is locked first so two concurrent submissions
// serialize; the loser then hits the UNIQUE KEY on reviews.connection_id and
// gets ErrAlreadyReviewed.
func (r *Repo) SubmitReview(ctx context.Context, rv domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var locked int64
	if err := tx.QueryRowContext(ctx, lockObligationSQL, rv.ConnectionID, rv.ExplorerID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Obligation already cleared: either reviewed concurrently or never owned.
			var exists int64
			if qerr := tx.QueryRowContext(ctx,
				`SELECT connection_id FROM reviews WHERE connection_id = ?`, rv.ConnectionID,
			).Scan(&exists); qerr == nil {
				return domain.ErrAlreadyReviewed
			}
			return domain.ErrNotFound
		}
		return err
	}

	photos := any(nil)
	if len(rv.Photos) > 0 {
		b, merr := json.Marshal(rv.Photos)
		if merr != nil {
			return merr
		}
		photos = string(b)
	}

	if _, err := tx.ExecContext(ctx, insertReviewSQL,
		rv.ConnectionID,
		rv.ExplorerID,
		rv.ASUserID,
		rv.Rating,
		rv.Comment,
		valInt(rv.ServiceQualityRating),
		valInt(rv.PunctualityRating),
		valInt(rv.CommunicationRating),
		valInt(rv.ValueForMoneyRating),
		rv.WouldHireAgain,
		rv.RecommendToOthers,
		photos,
	); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == duplicateEntryErrNo {
			// A review already exists for this connection, so the locked
			// obligation row is stale. Drop it here so it cannot block the
			// explorer forever.
			if _, derr := tx.ExecContext(ctx, deleteObligationSQL, rv.ConnectionID); derr == nil {
				_ = tx.Commit()
			}
			return domain.ErrAlreadyReviewed
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, deleteObligationSQL, rv.ConnectionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) CreateObligation(ctx context.Context, connectionID, explorerID int64, due time.Time) error {
	_, err := r.db.ExecContext(ctx, upsertObligationSQL, due, connectionID, explorerID)
	return err
}

func (r *Repo) CreateConnection(ctx context.Context, c domain.ServiceConnection) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertConnectionSQL,
		c.ExplorerID, c.ASUserID, c.ServiceTitle, string(c.Status))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) ListObligations(ctx context.Context, explorerID int64) ([]domain.ReviewObligation, error) {
	rows, err := r.db.QueryContext(ctx, listObligationsSQL, explorerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReviewObligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetObligation(ctx context.Context, explorerID, connectionID int64) (domain.ReviewObligation, error) {
	row := r.db.QueryRowContext(ctx, getObligationSQL, explorerID, connectionID)
	ob, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReviewObligation{}, domain.ErrNotFound
		}
		return domain.ReviewObligation{}, err
	}
	return ob, nil
}

func (r *Repo) ListCompletedWithoutReview(ctx context.Context, limit int) ([]domain.ServiceConnection, error) {
	rows, err := r.db.QueryContext(ctx, listCompletedWithoutReviewSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ServiceConnection
	for rows.Next() {
		var c domain.ServiceConnection
		var status string
		var price sql.NullFloat64
		var completed sql.NullTime
		if err := rows.Scan(&c.ID, &c.ExplorerID, &c.ASUserID, &c.ServiceTitle, &status, &price, &completed); err != nil {
			return nil, err
		}
		c.Status = domain.ConnectionStatus(status)
		if price.Valid {
			p := price.Float64
			c.FinalAgreedPrice = &p
		}
		if completed.Valid {
			t := completed.Time
			c.ServiceCompletedAt = &t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanObligation(row rowScanner) (domain.ReviewObligation, error) {
	var ob domain.ReviewObligation
	var profileImage sql.NullString
	var price sql.NullFloat64
	var blocking bool

	if err := row.Scan(
		&ob.ConnectionID,
		&ob.ExplorerID,
		&ob.ASUserID,
		&ob.ASName,
		&ob.ASLastName,
		&profileImage,
		&ob.VerificationStatus,
		&ob.ServiceTitle,
		&ob.ServiceCompletedAt,
		&price,
		&ob.ReviewDueDate,
		&blocking,
	); err != nil {
		return domain.ReviewObligation{}, err
	}

	if profileImage.Valid {
		s := profileImage.String
		ob.ASProfileImage = &s
	}
	if price.Valid {
		p := price.Float64
		ob.FinalAgreedPrice = &p
	}
	ob.IsBlockingNewServices = blocking
	return ob, nil
}
