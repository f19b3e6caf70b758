// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItems(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		entity string
		want   int
		shape  Shape
	}{
		{"results field", `{"results":[{"id":1},{"id":2}]}`, "studies", 2, ShapeResults},
		{"entity field", `{"studies":[{"id":1}],"nextPageToken":"x"}`, "studies", 1, ShapeEntity},
		{"bare array", `[{"id":1},{"id":2},{"id":3}]`, "studies", 3, ShapeArray},
		{"data field", `{"data":[{"id":1}]}`, "studies", 1, ShapeData},
		{"nested entity path", `{"esearchresult":{"count":"2","idlist":["1","2"]}}`, "esearchresult.idlist", 2, ShapeEntity},
		{"empty results array", `{"results":[]}`, "studies", 0, ShapeResults},
		{"results preferred over entity", `{"studies":[{"id":1}],"results":[{"id":1},{"id":2}]}`, "studies", 2, ShapeResults},
		{"entity preferred over data", `{"data":[{"id":1}],"studies":[{"id":1},{"id":2}]}`, "studies", 2, ShapeEntity},
		{"non-array results falls through", `{"results":{"total":3},"data":[{"id":9}]}`, "studies", 1, ShapeData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, shape, err := Items([]byte(tt.body), tt.entity)
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
			assert.Equal(t, tt.shape, shape)
		})
	}
}

func TestItemsUnrecognized(t *testing.T) {
	for _, body := range []string{`{"total":0}`, `{"results":null}`, `   `} {
		items, shape, err := Items([]byte(body), "studies")
		assert.ErrorIs(t, err, ErrUnrecognized, body)
		assert.Empty(t, items)
		assert.Equal(t, ShapeNone, shape)
	}
}

func TestItemsInvalidJSON(t *testing.T) {
	_, _, err := Items([]byte(`{"results": [`), "studies")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnrecognized)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "entity", ShapeEntity.String())
	assert.Equal(t, "none", ShapeNone.String())
}
