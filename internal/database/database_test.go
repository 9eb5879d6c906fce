package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRelationCollectionsHaveUniqueIndexes(t *testing.T) {
	for _, name := range []string{"likes", "follows", "saved_posts", "completed_tasks", "checkins", "sync_state"} {
		models, ok := Indexes[name]
		if !assert.True(t, ok, name) {
			continue
		}
		first := models[0]
		if assert.NotNil(t, first.Options, name) && assert.NotNil(t, first.Options.Unique, name) {
			assert.True(t, *first.Options.Unique, name)
		}
	}
}

func TestCompletedTasksKeyedByPeriod(t *testing.T) {
	keys, ok := Indexes["completed_tasks"][0].Keys.(bson.D)
	assert.True(t, ok)
	var names []string
	for _, k := range keys {
		names = append(names, k.Key)
	}
	assert.Equal(t, []string{"user", "taskId", "completedForDate"}, names)
}
