package db

import "github.com/google/uuid"

// assignID 在记录首次写入前生成 uuid 主键。
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
