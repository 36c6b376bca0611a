package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/timetable"
)

type classApi struct {
	svc       *classgroup.Service
	timetable *timetable.Service
	validate  *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		svc:       deps.ClassSvc,
		timetable: deps.TimetableSvc,
		validate:  deps.Validate,
	}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, admin)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, admin)
	cg.DELETE("/:id", api.destroy, admin)
	cg.GET("/:id/schedule", api.schedule)
	cg.POST("/:id/schedule", api.addScheduleItem, admin)
}

func (api *classApi) create(ctx echo.Context) error {
	var data classgroup.NewClassGroup
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cg)
}

func (api *classApi) query(ctx echo.Context) error {
	filter := new(classgroup.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classgroup.ClassGroup{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []classgroup.ClassGroup{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving class")
	}
	return ctx.JSON(http.StatusOK, cg)
}

func (api *classApi) update(ctx echo.Context) error {
	var data classgroup.UpdateClassGroup
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cg, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cg)
}

// destroy detaches the students and drops the class timetable in one transaction.
func (api *classApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) schedule(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "retrieving class")
	}
	items, err := api.timetable.QueryScheduleItems(ctx.Request().Context(), timetable.Filter{ClassID: ctx.Param("id")})
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}
	if items == nil {
		items = []timetable.ScheduleItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *classApi) addScheduleItem(ctx echo.Context) error {
	var data timetable.NewScheduleItem
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	data.ClassID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	item, err := api.timetable.CreateScheduleItem(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule item")
	}
	return ctx.JSON(http.StatusCreated, item)
}
