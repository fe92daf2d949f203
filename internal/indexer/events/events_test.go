package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/kafka"
)

type fakeProducer struct {
	single []kafka.Event
	batch  [][]kafka.Event
}

func (f *fakeProducer) Publish(_ context.Context, e kafka.Event) error {
	f.single = append(f.single, e)
	return nil
}

func (f *fakeProducer) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.batch = append(f.batch, events)
	return nil
}

func TestPublisher_Save(t *testing.T) {
	prod := &fakeProducer{}
	p := NewPublisher(prod)

	doc := document.Document{ID: "1", Class: "Artist", Text: "Picasso"}
	require.NoError(t, p.Save(context.Background(), doc))

	require.Len(t, prod.single, 1)
	assert.Equal(t, "Artist/1", prod.single[0].Key)

	data, err := json.Marshal(prod.single[0].Value)
	require.NoError(t, err)
	decoded, err := kafka.DecodeJSON[Event](data)
	require.NoError(t, err)
	assert.Equal(t, OpSave, decoded.Op)
	assert.Equal(t, "Picasso", decoded.Document.Text)
}

func TestPublisher_Batch(t *testing.T) {
	prod := &fakeProducer{}
	p := NewPublisher(prod)

	err := p.Publish(context.Background(),
		Event{Op: OpIndex, Document: document.Document{ID: "1", Class: "Artist"}},
		Event{Op: OpRemoveClass, Class: "Album"},
	)
	require.NoError(t, err)

	require.Len(t, prod.batch, 1)
	assert.Equal(t, "Artist/1", prod.batch[0][0].Key)
	assert.Equal(t, "Album", prod.batch[0][1].Key)
	assert.Equal(t, "Artist", prod.batch[0][0].Value.(Event).Class, "class is taken from the document")
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		ok    bool
	}{
		{"save", Event{Op: OpSave, Class: "A", Document: document.Document{ID: "1"}}, true},
		{"remove without id", Event{Op: OpRemove, Class: "A"}, false},
		{"index without class", Event{Op: OpIndex, Document: document.Document{ID: "1"}}, false},
		{"remove class", Event{Op: OpRemoveClass, Class: "A"}, true},
		{"remove class without class", Event{Op: OpRemoveClass}, false},
		{"unknown op", Event{Op: "upsert", Class: "A", Document: document.Document{ID: "1"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			}
		})
	}
}

func TestPublisher_RejectsInvalid(t *testing.T) {
	prod := &fakeProducer{}
	err := NewPublisher(prod).Publish(context.Background(), Event{Op: OpRemove})
	assert.Error(t, err)
	assert.Empty(t, prod.single)
}
