package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" neurologue_resident ")
	assert.NoError(t, err)
	assert.Equal(t, RoleNeurologueResident, r)

	_, err = ParseRole("NURSE")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRole_IsNeurologist(t *testing.T) {
	assert.True(t, RoleNeurologue.IsNeurologist())
	assert.True(t, RoleNeurologueResident.IsNeurologist())
	assert.False(t, RoleMedecin.IsNeurologist())
	assert.False(t, RoleAdmin.IsNeurologist())
}

func TestUser_IsLocked(t *testing.T) {
	u := &User{}
	assert.False(t, u.IsLocked())

	future := time.Now().Add(time.Minute)
	u.LockedUntil = &future
	assert.True(t, u.IsLocked())

	past := time.Now().Add(-time.Minute)
	u.LockedUntil = &past
	assert.False(t, u.IsLocked())
}
