// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package api serves the read API of a built store over HTTP.
package api

import (
	"net/http"

	"github.com/genuinemerit/saskan-app-sub000/internal/logging"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/gin-gonic/gin"
)

// NewRouter returns the HTTP handler of the read API.
func NewRouter(insp schema.Introspector, log *logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.GET("/categories", CategoriesHandler(insp, log))
	r.GET("/categories/:catg/tables", TablesHandler(insp, log))
	r.GET("/tables/:table/columns", ColumnsHandler(insp, log))
	r.GET("/tables/:table/about", AboutHandler(insp, log))
	r.GET("/tables/:table/columns/:column/edges", EdgesHandler(insp, log))
	return r
}

// RunServer serves the read API on the given address until it fails.
func RunServer(addr string, insp schema.Introspector, log *logging.Logger) error {
	log.Info("serving read API", "addr", addr)
	return NewRouter(insp, log).Run(addr)
}

func requestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status())
	}
}

// fail writes the error response. Unknown tables and columns are
// reported as not found.
func fail(c *gin.Context, log *logging.Logger, err error) {
	if schema.IsNotExistError(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Error("read API request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
