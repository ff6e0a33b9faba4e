package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	//一意制約違反（スラッグ・冪等キー・メールなど）
	ErrConflict = errors.New("conflict")
)
