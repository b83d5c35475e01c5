package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

func TestCategoryService_Create(t *testing.T) {
	categories := new(MockCategoryRepository)
	svc := NewCategoryService(categories)

	_, err := svc.Create(context.Background(), model.Category{Name: " "})
	assert.ErrorIs(t, err, ErrValidation)

	categories.On("Create", mock.Anything, model.Category{Name: "Work", Color: "blue"}).
		Return(model.Category{ID: 1, Name: "Work", Color: "blue"}, nil)

	created, err := svc.Create(context.Background(), model.Category{Name: "Work", Color: "blue"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	categories.AssertExpectations(t)
}

func TestCategoryService_UpdateValidation(t *testing.T) {
	categories := new(MockCategoryRepository)
	svc := NewCategoryService(categories)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, model.CategoryPatch{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Update(ctx, 1, model.CategoryPatch{Name: ptr("")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Update(ctx, 1, model.CategoryPatch{TaskCount: ptr(-1)})
	assert.ErrorIs(t, err, ErrValidation)

	categories.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
