package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomFull      = errors.New("room is full")
	ErrNotAuthorized = errors.New("not authorized")
	ErrAlreadyMember = errors.New("already a member of the room")

	ErrCodeEmpty       = errors.New("room code empty")
	ErrCodeTooLong     = errors.New("room code too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)
