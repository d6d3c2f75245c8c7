package utils

import "github.com/google/uuid"

// NewUserID, NewOrgID and NewPlayerID mint globally unique, prefixed ids.
func NewUserID() string   { return "user-" + uuid.NewString() }
func NewOrgID() string    { return "org-" + uuid.NewString() }
func NewPlayerID() string { return "player-" + uuid.NewString() }
