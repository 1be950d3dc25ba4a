package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil documentation service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingDocumentationService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Documentation: &mockDocumentationService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("ingestion port is optional", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Documentation: &mockDocumentationService{},
			Ingestion:     &mockIngestionService{},
		})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingDocumentationService)
	assert.ErrorIs(t, (&Ports{Ingestion: &mockIngestionService{}}).Validate(), ErrMissingDocumentationService)
	assert.NoError(t, (&Ports{Documentation: &mockDocumentationService{}}).Validate())
}
