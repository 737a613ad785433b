package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/entity"
)

type UserRepository interface {
	Save(ctx context.Context, user *entity.User) error
	Find(ctx context.Context, username string) (*entity.User, error)
}

type sqliteUsers struct {
	conn *sql.DB
}

func NewSQLiteUserRepository(conn *sql.DB) UserRepository {
	return &sqliteUsers{
		conn: conn,
	}
}

func (that *sqliteUsers) Save(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (username, password) VALUES (?, ?)`

	_, err := that.conn.ExecContext(ctx, query, user.Username, user.Password)
	if err != nil {
		return fmt.Errorf("can't save user: %w", err)
	}

	return nil
}

func (that *sqliteUsers) Find(ctx context.Context, username string) (*entity.User, error) {
	query := `SELECT username, password FROM users WHERE username = ?`

	var user entity.User

	err := that.conn.QueryRowContext(ctx, query, username).Scan(&user.Username, &user.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find user: %w", err)
	}

	return &user, nil
}

type redisUsers struct {
	client *redis.Client
}

func NewRedisUserRepository(client *redis.Client) UserRepository {
	return &redisUsers{
		client: client,
	}
}

func (that *redisUsers) Save(ctx context.Context, user *entity.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	userKey := "user:" + user.Username
	err = that.client.Set(ctx, userKey, userJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set user: %w", err)
	}

	return nil
}

func (that *redisUsers) Find(ctx context.Context, username string) (*entity.User, error) {
	userKey := "user:" + username

	response, err := that.client.Get(ctx, userKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}

	var existingUser entity.User
	if err = json.Unmarshal([]byte(response), &existingUser); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &existingUser, nil
}
