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

package registrar

import (
	"embed"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/solacrm/registrar/cache"
	"github.com/solacrm/registrar/config"
	"github.com/solacrm/registrar/database"
	"github.com/solacrm/registrar/internal/notification"
	redis_db "github.com/solacrm/registrar/internal/redis-db"
	"github.com/solacrm/registrar/providers"
)

// Registrar represents the main struct for the webinar registration service.
type Registrar struct {
	queue      *Queue
	redis      redis.UniversalClient
	cache      cache.Cache
	datasource database.IDataSource
	adapters   []providers.Adapter
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewRegistrar initializes a new instance of Registrar with the provided
// database datasource. It fetches the configuration and initializes the
// Redis client, cache, webhook queue and the provider adapter set.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Registrar: A pointer to the newly created Registrar instance.
// - error: An error if any of the initialization steps fail.
func NewRegistrar(db database.IDataSource) (*Registrar, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(fmt.Sprintf("redis://%s", configuration.Redis.Dns), configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, errors.Wrap(err, "initializing cache")
	}
	newQueue := NewQueue(configuration)

	newRegistrar := &Registrar{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		cache:      newCache,
		adapters:   providers.ConfiguredAdapters(configuration),
	}

	// system notifications ride the same webhook pipeline as domain events
	notification.RegisterWebhookSender(func(event string, payload interface{}) error {
		return newRegistrar.SendWebhook(NewWebhook{Event: event, Payload: payload})
	})

	return newRegistrar, nil
}
