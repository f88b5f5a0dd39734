/*
Copyright 2024 SolaCRM Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/solacrm/registrar"
	"github.com/solacrm/registrar/api/middleware"
	"github.com/solacrm/registrar/config"
)

type Api struct {
	registrar *registrar.Registrar
	router    *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/webinars/register", a.RegisterWebinar)
	router.POST("/webinars/retry", a.RetryWebinarRegistration)

	registrations := router.Group("/webinars/registrations")
	registrations.Use(middleware.SecretKeyAuthMiddleware())
	registrations.GET("/:id", a.GetWebinarRegistration)
	registrations.GET("/email/:email", a.GetWebinarRegistrationByEmail)
	registrations.GET("", a.GetAllWebinarRegistrations)

	return a.router
}

func NewAPI(r *registrar.Registrar, conf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.Use(otelgin.Middleware("registrar"))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware(conf))

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{registrar: r, router: router}
}
