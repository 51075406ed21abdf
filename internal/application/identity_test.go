package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/authsession/internal/adapter/driven/jwtclaims"
	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/domain/model"
)

func TestDeriveIdentity(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  model.Identity
	}{
		{
			name:  "name and profile id",
			token: makeToken(`{"name":"Alice","profile_id":"p1"}`),
			want:  model.Identity{DisplayName: "Alice", ProfileID: "p1"},
		},
		{
			name:  "preferred_username when name is missing",
			token: makeToken(`{"preferred_username":"alice@example.com","sub":"42"}`),
			want:  model.Identity{DisplayName: "alice@example.com"},
		},
		{
			name:  "empty name falls through to sub",
			token: makeToken(`{"name":"","sub":"user-7"}`),
			want:  model.Identity{DisplayName: "user-7"},
		},
		{
			name:  "no name claims",
			token: makeToken(`{"iss":"idp"}`),
			want:  model.Identity{DisplayName: "User"},
		},
		{
			name:  "numeric profile id is stringified",
			token: makeToken(`{"name":"Bob","profile_id":42}`),
			want:  model.Identity{DisplayName: "Bob", ProfileID: "42"},
		},
		{
			name:  "undecodable token",
			token: "not-a-token",
			want:  model.Identity{DisplayName: "User"},
		},
		{
			name:  "claims of unusable type",
			token: makeToken(`{"name":{"first":"Ann"}}`),
			want:  model.Identity{DisplayName: "User"},
		},
		{
			name:  "object name falls through and keeps profile id",
			token: makeToken(`{"name":{"first":"Ann"},"sub":["a","b"],"preferred_username":"ann","profile_id":"p9"}`),
			want:  model.Identity{DisplayName: "ann", ProfileID: "p9"},
		},
	}

	decoder := jwtclaims.NewDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.DeriveIdentity(decoder, tt.token))
		})
	}
}
