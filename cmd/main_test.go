package main

import (
	"testing"

	"hiring-portal/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestLockerOfWithoutRedis(t *testing.T) {
	assert.Nil(t, lockerOf(&storage.Storage{}))
}
