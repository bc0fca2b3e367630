/* scheduler_test.go
 * Contains unit tests for scheduler.go
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivor-pool/api/shared"
)

func TestScheduler_StartAndStop(t *testing.T) {
	a, _, _ := newReadyAPI(t, Options{})
	s := NewScheduler(a, SchedulerConfig{RefreshSchedule: "*/15 * * * *", AuditSchedule: "0 6 * * *"})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, s.Jobs())
	assert.Error(t, s.Start(context.Background()))

	s.Stop()
	s.Stop()
}

func TestScheduler_EmptyScheduleDisablesJob(t *testing.T) {
	a, _, _ := newReadyAPI(t, Options{})
	s := NewScheduler(a, SchedulerConfig{AuditSchedule: "@daily"})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, 1, s.Jobs())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	a, _, _ := newReadyAPI(t, Options{})
	s := NewScheduler(a, SchedulerConfig{RefreshSchedule: "every now and then"})

	err := s.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh job")
}

func TestScheduler_RefreshJobSkipsBeforeFirstDeadline(t *testing.T) {
	a, _, prov := newReadyAPI(t, Options{})
	s := NewScheduler(a, SchedulerConfig{})

	s.RefreshJob(context.Background())

	assert.Equal(t, 0, prov.CallCount())
}

func TestScheduler_RefreshJob(t *testing.T) {
	a, st, prov := newTestAPI(t, Options{CurrentWeek: 1}, nil)
	require.NoError(t, a.Init(context.Background()))
	prov.SetWeek(1, week1Games()...)
	st.AddMember("u1", "One", []shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}}, nil)
	s := NewScheduler(a, SchedulerConfig{})

	s.RefreshJob(context.Background())

	assert.Equal(t, 1, prov.CallCount())
	status := st.Status("u1")
	require.NotNil(t, status)
	assert.Equal(t, shared.StateSurvived, status.State)
}

func TestScheduler_RefreshJobProviderDown(t *testing.T) {
	a, st, prov := newTestAPI(t, Options{CurrentWeek: 1}, nil)
	require.NoError(t, a.Init(context.Background()))
	prov.Errors = []error{shared.ProviderUnavailable(errFlaky, "fetching week 1")}
	st.AddMember("u1", "One", []shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}}, nil)
	s := NewScheduler(a, SchedulerConfig{})

	s.RefreshJob(context.Background())

	assert.Nil(t, st.Status("u1"))
}

func TestScheduler_AuditJob(t *testing.T) {
	a, st, _ := newReadyAPI(t, Options{})
	st.AddMember("u1", "One", []shared.Pick{{Week: 1, Team: "Dallas Cowboys"}}, nil)
	s := NewScheduler(a, SchedulerConfig{AuditAutoCorrect: true})

	s.AuditJob(context.Background())

	require.Len(t, st.AuditReports, 1)
	assert.Equal(t, 1, st.AuditReports[0].Corrected)
	assert.Equal(t, shared.StateEliminated, st.Status("u1").State)
}
