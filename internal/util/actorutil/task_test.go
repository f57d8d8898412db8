package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundTaskSuccess(t *testing.T) {

	assert := assert.New(t)

	got := make(chan int, 1)

	value := 42
	NewBackgroundTask(nil, func() (*int, error) {
		return &value, nil
	}).OnSuccess(func(v int) {
		got <- v
	}).Run()

	assert.Equal(42, <-got)
}

func TestBackgroundTaskRecoveredValueDelivered(t *testing.T) {

	assert := assert.New(t)

	got := make(chan string, 1)

	NewBackgroundTask(nil, func() (*string, error) {
		return nil, errors.New("boom")
	}).Recover(func(err error) string {
		return "recovered: " + err.Error()
	}).OnSuccess(func(v string) {
		got <- v
	}).Run()

	assert.Equal("recovered: boom", <-got)
}

func TestBackgroundTaskOnError(t *testing.T) {

	assert := assert.New(t)

	got := make(chan error, 1)
	called := false

	NewBackgroundTask(nil, func() (*int, error) {
		return nil, errors.New("boom")
	}).OnError(func(err error) {
		got <- err
	}).OnSuccess(func(v int) {
		called = true
	}).Run()

	assert.ErrorContains(<-got, "boom")
	assert.False(called)
}

func TestBackgroundTaskTimeout(t *testing.T) {

	assert := assert.New(t)

	got := make(chan string, 1)

	NewBackgroundTask(nil, func() (*string, error) {
		time.Sleep(200 * time.Millisecond)
		s := "late"
		return &s, nil
	}).WithTimeout(20 * time.Millisecond).Recover(func(err error) string {
		return "timed out"
	}).OnSuccess(func(v string) {
		got <- v
	}).Run()

	assert.Equal("timed out", <-got)
}
