package models

import "time"

// User представляет пользователя магазина
type User struct {
	ID        int64
	Email     string
	PassHash  []byte
	IsAdmin   bool // роль админа хранится в БД и попадает в JWT как claim
	CreatedAt time.Time
}
