package cart

import "github.com/google/uuid"

func newItemID() string {
	return uuid.New().String()
}
