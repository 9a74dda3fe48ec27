package dal

import (
	"context"
	"database/sql"
	"time"

	"github.com/chatterbox/chatserver/internal/authcrypto"
	"github.com/chatterbox/chatserver/internal/gateway"
	"github.com/chatterbox/chatserver/internal/model"
)

// sqlDAL is the relational-store-backed DAL (§4.C), built over the
// Connection Pool and Query Gateway.
type sqlDAL struct {
	pool      *gateway.Pool
	acquireTO time.Duration
}

// NewSQLDAL returns a DAL backed by pool, using acquireTimeout for every
// handle checkout.
func NewSQLDAL(pool *gateway.Pool, acquireTimeout time.Duration) DAL {
	return &sqlDAL{pool: pool, acquireTO: acquireTimeout}
}

func (d *sqlDAL) acquire(ctx context.Context) (*gateway.Handle, error) {
	return d.pool.Acquire(ctx, d.acquireTO)
}

// CreateUser and ChangeDisplayName run multi-statement discriminator
// assignment atomically and so go straight to *sql.Tx; every other
// operation here runs its statements one at a time through gateway.Execute.
func (d *sqlDAL) CreateUser(name, email string, passwordHash []byte, role model.Role) (model.User, error) {
	ctx := context.Background()
	h, err := d.acquire(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer h.Release()

	var user model.User
	err = gateway.ExecuteTransaction(ctx, h, func(tx *sql.Tx) error {
		var existing int64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&existing); err == nil {
			return ErrEmailTaken
		} else if err != sql.ErrNoRows {
			return err
		}

		taken := map[string]bool{}
		rows, err := tx.QueryContext(ctx, "SELECT discriminator FROM users WHERE name = $1", name)
		if err != nil {
			return err
		}
		for rows.Next() {
			var disc string
			if err := rows.Scan(&disc); err != nil {
				rows.Close()
				return err
			}
			taken[disc] = true
		}
		rows.Close()

		disc, err := assignDiscriminator(taken)
		if err != nil {
			return err
		}

		isAdmin := role == model.RoleAdmin
		var id int64
		var created time.Time
		err = tx.QueryRowContext(ctx,
			`INSERT INTO users (name, discriminator, email, password_hash, is_admin, created_time)
			 VALUES ($1, $2, $3, $4, $5, now()) RETURNING id, created_time`,
			name, disc, email, passwordHash, isAdmin,
		).Scan(&id, &created)
		if err != nil {
			return err
		}

		user = model.User{
			ID: id, Name: name, Discriminator: disc, Email: email,
			Role: role, CreatedTime: created,
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (d *sqlDAL) Authenticate(email, password string) (model.User, error) {
	ctx := context.Background()
	h, err := d.acquire(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer h.Release()

	result, err := gateway.Execute(ctx, h,
		"SELECT id, name, discriminator, email, password_hash, is_admin, created_time FROM users WHERE email = $1",
		true, gateway.StringValue(email))
	if err != nil {
		return model.User{}, translateNotFound(err)
	}
	row, _ := result.Single()
	if !authcrypto.Verify(password, []byte(row["password_hash"].String())) {
		return model.User{}, ErrWrongPassword
	}
	return userFromRow(row), nil
}

func (d *sqlDAL) ChangePassword(email, oldPassword, newPassword string) error {
	ctx := context.Background()
	h, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	result, err := gateway.Execute(ctx, h, "SELECT id, password_hash FROM users WHERE email = $1", true, gateway.StringValue(email))
	if err != nil {
		return translateNotFound(err)
	}
	row, _ := result.Single()
	if !authcrypto.Verify(oldPassword, []byte(row["password_hash"].String())) {
		return ErrWrongPassword
	}

	newHash, err := authcrypto.Hash(newPassword)
	if err != nil {
		return err
	}
	_, err = gateway.Execute(ctx, h, "UPDATE users SET password_hash = $1 WHERE id = $2", false,
		gateway.StringValue(string(newHash)), gateway.IntValue(row["id"].Int()))
	return err
}

func (d *sqlDAL) ChangeDisplayName(userID int64, name string) (model.User, error) {
	ctx := context.Background()
	h, err := d.acquire(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer h.Release()

	var user model.User
	err = gateway.ExecuteTransaction(ctx, h, func(tx *sql.Tx) error {
		taken := map[string]bool{}
		rows, err := tx.QueryContext(ctx, "SELECT discriminator FROM users WHERE name = $1", name)
		if err != nil {
			return err
		}
		for rows.Next() {
			var disc string
			if err := rows.Scan(&disc); err != nil {
				rows.Close()
				return err
			}
			taken[disc] = true
		}
		rows.Close()

		disc, err := assignDiscriminator(taken)
		if err != nil {
			return err
		}

		var isAdmin bool
		var created time.Time
		var email string
		row := tx.QueryRowContext(ctx,
			"UPDATE users SET name = $1, discriminator = $2 WHERE id = $3 RETURNING email, is_admin, created_time",
			name, disc, userID)
		if err := row.Scan(&email, &isAdmin, &created); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}

		user = model.User{
			ID: userID, Name: name, Discriminator: disc, Email: email,
			Role: roleFromBool(isAdmin), CreatedTime: created,
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (d *sqlDAL) GetUserByID(userID int64) (model.User, error) {
	return d.getUserBy("id = $1", gateway.IntValue(userID))
}

func (d *sqlDAL) GetUserByEmail(email string) (model.User, error) {
	return d.getUserBy("email = $1", gateway.StringValue(email))
}

func (d *sqlDAL) GetUserByFullName(name, discriminator string) (model.User, error) {
	ctx := context.Background()
	h, err := d.acquire(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer h.Release()

	result, err := gateway.Execute(ctx, h,
		"SELECT id, name, discriminator, email, is_admin, created_time FROM users WHERE name = $1 AND discriminator = $2",
		true, gateway.StringValue(name), gateway.StringValue(discriminator))
	if err != nil {
		return model.User{}, translateNotFound(err)
	}
	row, _ := result.Single()
	return userFromRow(row), nil
}

func (d *sqlDAL) getUserBy(clause string, arg gateway.Value) (model.User, error) {
	ctx := context.Background()
	h, err := d.acquire(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer h.Release()

	result, err := gateway.Execute(ctx, h,
		"SELECT id, name, discriminator, email, is_admin, created_time FROM users WHERE "+clause, true, arg)
	if err != nil {
		return model.User{}, translateNotFound(err)
	}
	row, _ := result.Single()
	return userFromRow(row), nil
}

func userFromRow(row gateway.Row) model.User {
	return model.User{
		ID:            row["id"].Int(),
		Name:          row["name"].String(),
		Discriminator: row["discriminator"].String(),
		Email:         row["email"].String(),
		Role:          roleFromBool(row["is_admin"].Bool()),
		CreatedTime:   row["created_time"].Time(),
	}
}

func roleFromBool(isAdmin bool) model.Role {
	if isAdmin {
		return model.RoleAdmin
	}
	return model.RoleNormal
}
