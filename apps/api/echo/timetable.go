package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core/timetable"
	"github.com/trezcool/lophoc/core/user"
)

type timetableApi struct {
	svc      *timetable.Service
	validate *validator.Validate
}

func registerTimetableAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, deps ServerDeps) {
	api := timetableApi{svc: deps.TimetableSvc, validate: deps.Validate}
	staff := roleMiddleware(user.RoleAdmin, user.RoleTeacher)

	g.GET("/teaching-assignments", api.queryTeachingAssignments, jwt)
	g.POST("/teaching-assignments", api.createTeachingAssignment, jwt, admin)
	g.GET("/assignments", api.queryAssignments, jwt)
	g.POST("/assignments", api.createAssignment, jwt, staff)
}

func (api *timetableApi) createTeachingAssignment(ctx echo.Context) error {
	var data timetable.NewTeachingAssignment
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ta, err := api.svc.CreateTeachingAssignment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teaching assignment")
	}
	return ctx.JSON(http.StatusCreated, ta)
}

func (api *timetableApi) queryTeachingAssignments(ctx echo.Context) error {
	var filter timetable.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []timetable.TeachingAssignment{})
	}
	tas, err := api.svc.QueryTeachingAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teaching assignments")
	}
	if tas == nil {
		tas = []timetable.TeachingAssignment{}
	}
	return ctx.JSON(http.StatusOK, tas)
}

func (api *timetableApi) createAssignment(ctx echo.Context) error {
	var data timetable.NewAssignment
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.CreateAssignment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *timetableApi) queryAssignments(ctx echo.Context) error {
	var filter timetable.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []timetable.Assignment{})
	}
	asgs, err := api.svc.QueryAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []timetable.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}
