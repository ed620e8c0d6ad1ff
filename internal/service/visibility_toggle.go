package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/internal/store"
	"github.com/noah-isme/course-gateway/internal/workflow"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// visibilityToggler runs the gate-then-engine flow shared by teachers and admins.
type visibilityToggler struct {
	courses *store.CourseStore
	engine  *optimistic.Engine
	remote  visibilityRemote
	cache   *CacheService
	logger  *zap.Logger
}

// toggleRequest customises one toggle. authorize runs under the key lock
// before the gate. want, when set, refuses toggles that would not land on it.
type toggleRequest struct {
	courseID  string
	authorize func(models.Course) error
	want      models.Visibility
	success   string
	onConfirm func(ctx context.Context, before, after models.Course)
}

// hydrate makes sure the course is in the session store.
func (t visibilityToggler) hydrate(ctx context.Context, courseID string) (models.Course, error) {
	if course, err := t.courses.Get(courseID); err == nil {
		return course, nil
	}
	course, err := t.cache.Course(ctx, courseID, func(ctx context.Context) (models.Course, error) {
		return t.remote.GetCourse(ctx, courseID)
	})
	if err != nil {
		return models.Course{}, err
	}
	t.courses.Put(course)
	return course, nil
}

func (t visibilityToggler) toggle(ctx context.Context, req toggleRequest) (models.Course, error) {
	if _, err := t.hydrate(ctx, req.courseID); err != nil {
		return models.Course{}, err
	}

	var before models.Course
	var serverStatus models.CourseStatus
	read, write := t.courses.Visibility(req.courseID)
	_, err := optimistic.Apply(ctx, t.engine, optimistic.Mutation[models.Visibility]{
		Key:    courseKey(req.courseID, fieldVisibility),
		Policy: optimistic.Wait,
		Read:   read,
		Write:  write,
		Propose: func(current models.Visibility) (models.Visibility, error) {
			course, err := t.courses.Get(req.courseID)
			if err != nil {
				return current, err
			}
			if req.authorize != nil {
				if err := req.authorize(course); err != nil {
					return current, err
				}
			}
			next := current.Toggle()
			if err := workflow.CheckVisibility(course.Status, next); err != nil {
				return current, err
			}
			if req.want != models.VisibilityUnset && next != req.want {
				return current, appErrors.Illegal("course is already " + string(current))
			}
			before = course
			return next, nil
		},
		Remote: func(ctx context.Context, _ models.Visibility) (models.Visibility, error) {
			result, err := t.remote.ToggleVisibility(ctx, req.courseID)
			if err != nil {
				return models.VisibilityUnset, err
			}
			serverStatus = result.Status
			return result.Visibility, nil
		},
		Equal: optimistic.Comparable[models.Visibility](),
		OnConfirm: []func(context.Context, models.Visibility){
			func(ctx context.Context, confirmed models.Visibility) {
				if serverStatus != "" && serverStatus != before.Status {
					t.logger.Info("server reported a different course status on toggle",
						zap.String("course_id", req.courseID),
						zap.String("known", string(before.Status)),
						zap.String("server", string(serverStatus)),
					)
					adopted := t.engine.WriteIdle(courseKey(req.courseID, fieldStatus), func() {
						_ = t.courses.Update(req.courseID, func(c *models.Course) { c.Status = serverStatus })
					})
					if !adopted {
						t.logger.Info("status mutation in flight, leaving status to its reconciliation",
							zap.String("course_id", req.courseID),
						)
					}
				}
				after, err := t.courses.Get(req.courseID)
				if err != nil {
					return
				}
				t.cache.RefreshCourse(ctx, after)
				if req.onConfirm != nil {
					req.onConfirm(ctx, before, after)
				}
			},
		},
		Success: req.success,
		Failure: "Could not change visibility",
	})
	if err != nil {
		return models.Course{}, err
	}
	return t.courses.Get(req.courseID)
}
