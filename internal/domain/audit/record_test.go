package audit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRecordDefaultsActor(t *testing.T) {
	r := NewRecord("", "", "GET /api/v1/stands", "/api/v1/stands", http.StatusUnauthorized)
	assert.Equal(t, Anonymous, r.Actor)
	assert.False(t, r.Succeeded())
}

func TestFilterMatches(t *testing.T) {
	r := NewRecord("admin", "admin", "POST /api/v1/projects", "/api/v1/projects", http.StatusCreated)
	created := http.StatusCreated
	forbidden := http.StatusForbidden
	past := r.Timestamp.Add(-time.Minute)
	future := r.Timestamp.Add(time.Minute)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty", filter: Filter{}, want: true},
		{name: "actor", filter: Filter{Actor: "admin"}, want: true},
		{name: "other actor", filter: Filter{Actor: "agent1"}, want: false},
		{name: "action", filter: Filter{Action: "POST /api/v1/projects"}, want: true},
		{name: "outcome", filter: Filter{Outcome: &created}, want: true},
		{name: "other outcome", filter: Filter{Outcome: &forbidden}, want: false},
		{name: "since past", filter: Filter{Since: &past}, want: true},
		{name: "since future", filter: Filter{Since: &future}, want: false},
		{name: "until past", filter: Filter{Until: &past}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(r))
		})
	}
}
