package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type stubSubjectStore struct {
	subjects   map[string]*models.Subject
	created    []*models.Subject
	renamed    []string
	deletedIDs []string
	deleteErr  error
}

func (s *stubSubjectStore) FindByID(_ context.Context, id string) (*models.Subject, error) {
	if subject, ok := s.subjects[id]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubSubjectStore) ListByClass(_ context.Context, classID string) ([]models.Subject, error) {
	var out []models.Subject
	for _, subject := range s.subjects {
		if subject.ClassID == classID {
			out = append(out, *subject)
		}
	}
	return out, nil
}

func (s *stubSubjectStore) List(_ context.Context, _ models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	return nil, 0, nil
}

func (s *stubSubjectStore) Create(_ context.Context, subject *models.Subject) error {
	if s.subjects == nil {
		s.subjects = map[string]*models.Subject{}
	}
	s.subjects[subject.ID] = subject
	s.created = append(s.created, subject)
	return nil
}

func (s *stubSubjectStore) Rename(_ context.Context, id, name string) error {
	subject, ok := s.subjects[id]
	if !ok {
		return sql.ErrNoRows
	}
	subject.Name = name
	s.renamed = append(s.renamed, id)
	return nil
}

func (s *stubSubjectStore) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.subjects, id)
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func newSubjectFixture() (*stubSubjectStore, *recordingAuthorizer, *SubjectService) {
	store := &stubSubjectStore{subjects: map[string]*models.Subject{
		"subject-1": {ID: "subject-1", Name: "Mathematics", ClassID: "class-1"},
	}}
	access := &recordingAuthorizer{}
	classes := &stubClassReader{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "10", Section: "A"},
	}}
	svc := NewSubjectService(access, store, classes, nil, zap.NewNop())
	return store, access, svc
}

func TestSubjectServiceCreate(t *testing.T) {
	store, access, svc := newSubjectFixture()

	subject, err := svc.Create(context.Background(), adminActor(), CreateSubjectRequest{Name: "Physics", ClassID: "class-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, subject.ID)
	assert.Nil(t, subject.TeacherID)
	require.Len(t, store.created, 1)

	require.Len(t, access.actions, 1)
	assert.Equal(t, models.CapEditSubjects, access.actions[0].Capability)
}

func TestSubjectServiceCreateUnknownClass(t *testing.T) {
	_, _, svc := newSubjectFixture()

	_, err := svc.Create(context.Background(), adminActor(), CreateSubjectRequest{Name: "Physics", ClassID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceRename(t *testing.T) {
	store, access, svc := newSubjectFixture()

	require.NoError(t, svc.Rename(context.Background(), adminActor(), "subject-1", RenameSubjectRequest{Name: "Algebra"}))
	assert.Equal(t, "Algebra", store.subjects["subject-1"].Name)
	assert.Equal(t, models.CapEditSubjects, access.actions[0].Capability)

	err := svc.Rename(context.Background(), adminActor(), "missing", RenameSubjectRequest{Name: "Algebra"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceDeleteUsesDeleteCapability(t *testing.T) {
	store, access, svc := newSubjectFixture()

	require.NoError(t, svc.Delete(context.Background(), adminActor(), "subject-1"))
	assert.Equal(t, []string{"subject-1"}, store.deletedIDs)

	require.Len(t, access.actions, 1)
	assert.Equal(t, models.CapDeleteSubjects, access.actions[0].Capability)
}

func TestSubjectServiceDeleteDenied(t *testing.T) {
	store, access, svc := newSubjectFixture()
	access.deny = appErrors.Clone(appErrors.ErrForbidden, "missing required privilege")

	err := svc.Delete(context.Background(), Actor{UserID: "user-t1", Role: models.RoleTeacher, TeacherID: "teacher-1"}, "subject-1")
	require.Error(t, err)
	assert.Empty(t, store.deletedIDs)
}
