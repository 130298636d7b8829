package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func withAdminRole(ctx context.Context) context.Context {
	return middleware.WithRole(ctx, string(enums.MemberRoleAdmin))
}
