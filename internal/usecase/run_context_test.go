package usecase_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

func TestRunContext_MarkSeen(t *testing.T) {
	run := usecase.NewRunContext(testLogger(), usecase.ExtractOptions{}, 4)

	a := domain.Source{Origin: "a.yaml", Kind: domain.KindSpec, Data: []byte("openapi: 3.0.0")}
	sameContent := domain.Source{Origin: "copy/a.yaml", Kind: domain.KindSpec, Data: []byte("openapi: 3.0.0")}
	otherKind := domain.Source{Origin: "a.txt", Kind: domain.KindDocument, Data: []byte("openapi: 3.0.0")}

	assert.False(t, run.MarkSeen(a))
	assert.True(t, run.MarkSeen(sameContent))
	assert.False(t, run.MarkSeen(otherKind))
	assert.Equal(t, 2, run.SeenCount())

	assert.Equal(t, usecase.DefaultExtractOptions(), run.Options)
	assert.NotEqual(t, run.ID, usecase.NewRunContext(testLogger(), usecase.ExtractOptions{}, 1).ID)
}

func TestRunContext_MarkSeenConcurrent(t *testing.T) {
	run := usecase.NewRunContext(testLogger(), usecase.DefaultExtractOptions(), 100)
	src := domain.Source{Kind: domain.KindCode, Language: "go", Data: []byte("package main")}

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !run.MarkSeen(src) {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fresh)
}
