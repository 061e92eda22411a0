package postgres

import (
	"context"

	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type usersRepo struct{ db DB }

const userCols = `id, username, email, password_hash, role, balance::text, created_at, updated_at`

func (r *usersRepo) scan(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var bal string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &bal, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return models.User{}, mapNotFound(err)
	}
	var err error
	u.Balance, err = parseDec(bal)
	return u, err
}

func (r *usersRepo) Create(ctx context.Context, username, email, hash, role string, balance decimal.Decimal) (models.User, error) {
	id := uuid.NewString()
	return r.scan(r.db.QueryRow(ctx,
		`INSERT INTO users(id, username, email, password_hash, role, balance)
		 VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING `+userCols,
		id, username, email, hash, role, balance.String(),
	))
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
}

func (r *usersRepo) GetOrCreateMerchant(ctx context.Context) (models.User, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users(id, username, email, password_hash, role, balance)
		 VALUES($1,$2,$3,'',$4,0)
		 ON CONFLICT (username) DO NOTHING`,
		uuid.NewString(), models.MerchantUsername, models.MerchantUsername+"@local", models.RoleMerchant,
	)
	if err != nil {
		return models.User{}, err
	}
	return r.scan(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, models.MerchantUsername))
}

func (r *usersRepo) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (models.User, error) {
	return r.scan(r.db.QueryRow(ctx,
		`UPDATE users
		    SET balance = balance + $2,
		        updated_at = now()
		  WHERE id = $1
		  RETURNING `+userCols,
		id, delta.String(),
	))
}
