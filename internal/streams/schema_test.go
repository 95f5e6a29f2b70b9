package streams

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateScorePayload(t *testing.T) {
	valid := map[string]interface{}{"entry_id": float64(42), "score": 0.7}
	assert.NoError(t, ValidateScorePayload(valid))

	t.Run("boundary scores accepted", func(t *testing.T) {
		for _, score := range []float64{-1, 0, 1} {
			payload := map[string]interface{}{"entry_id": float64(1), "score": score}
			assert.NoError(t, ValidateScorePayload(payload))
		}
	})

	t.Run("rejects out of range score", func(t *testing.T) {
		payload := map[string]interface{}{"entry_id": float64(1), "score": 1.5}
		assert.Error(t, ValidateScorePayload(payload))
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		assert.Error(t, ValidateScorePayload(map[string]interface{}{"score": 0.5}))
		assert.Error(t, ValidateScorePayload(map[string]interface{}{"entry_id": float64(1)}))
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		payload := map[string]interface{}{"entry_id": float64(1), "score": 0.5, "extra": "x"}
		assert.Error(t, ValidateScorePayload(payload))
	})
}
