package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	queryFn     func(ctx context.Context, soql string, out any) error
	insertOneFn func(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	updateOneFn func(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	if m.queryFn != nil {
		return m.queryFn(ctx, soql, out)
	}
	return nil
}

func (m *mockClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if m.insertOneFn != nil {
		return m.insertOneFn(ctx, sObjectName, record)
	}
	return "00Q000000000001", nil
}

func (m *mockClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if m.updateOneFn != nil {
		return m.updateOneFn(ctx, sObjectName, id, fields)
	}
	return nil
}

func TestFindLeadByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		var captured string
		mc := &mockClient{
			queryFn: func(_ context.Context, soql string, out any) error {
				captured = soql
				*out.(*[]Lead) = []Lead{{ID: "00Q1", Email: "jana@example.com"}}
				return nil
			},
		}
		lead, err := FindLeadByEmail(context.Background(), mc, "jana@example.com")
		require.NoError(t, err)
		require.NotNil(t, lead)
		assert.Equal(t, "00Q1", lead.ID)
		assert.Contains(t, captured, "FROM Lead WHERE Email = 'jana@example.com'")
	})

	t.Run("not found", func(t *testing.T) {
		lead, err := FindLeadByEmail(context.Background(), &mockClient{}, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, lead)
	})

	t.Run("escapes quotes", func(t *testing.T) {
		var captured string
		mc := &mockClient{
			queryFn: func(_ context.Context, soql string, _ any) error {
				captured = soql
				return nil
			},
		}
		_, err := FindLeadByEmail(context.Background(), mc, "o'brien@example.com")
		require.NoError(t, err)
		assert.Contains(t, captured, `'o\'brien@example.com'`)
	})

	t.Run("propagates error", func(t *testing.T) {
		mc := &mockClient{
			queryFn: func(context.Context, string, any) error { return errors.New("api error") },
		}
		_, err := FindLeadByEmail(context.Background(), mc, "x@example.com")
		assert.ErrorContains(t, err, "find lead by email")
	})
}

func TestCreateLead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var object string
		mc := &mockClient{
			insertOneFn: func(_ context.Context, sObject string, _ map[string]any) (string, error) {
				object = sObject
				return "00QNEW", nil
			},
		}
		id, err := CreateLead(context.Background(), mc, map[string]any{"LastName": "Becker", "Company": "Acme"})
		require.NoError(t, err)
		assert.Equal(t, "00QNEW", id)
		assert.Equal(t, "Lead", object)
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := CreateLead(context.Background(), &mockClient{}, map[string]any{"LastName": "Becker"})
		assert.ErrorContains(t, err, "Company is required")
	})

	t.Run("propagates error", func(t *testing.T) {
		mc := &mockClient{
			insertOneFn: func(context.Context, string, map[string]any) (string, error) {
				return "", errors.New("api error")
			},
		}
		_, err := CreateLead(context.Background(), mc, map[string]any{"LastName": "B", "Company": "C"})
		assert.ErrorContains(t, err, "create lead")
	})
}

func TestUpdateLead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotID string
		mc := &mockClient{
			updateOneFn: func(_ context.Context, _ string, id string, _ map[string]any) error {
				gotID = id
				return nil
			},
		}
		require.NoError(t, UpdateLead(context.Background(), mc, "00Q1", map[string]any{"Rating": "Hot"}))
		assert.Equal(t, "00Q1", gotID)
	})

	t.Run("validation", func(t *testing.T) {
		assert.ErrorContains(t, UpdateLead(context.Background(), &mockClient{}, "", map[string]any{"a": 1}), "lead id is required")
		assert.ErrorContains(t, UpdateLead(context.Background(), &mockClient{}, "00Q1", nil), "no fields")
	})
}
