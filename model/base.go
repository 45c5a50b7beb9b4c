package model

import "github.com/google/uuid"

// assignID fills a zero primary key before insert
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
