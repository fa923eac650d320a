//go:build wireinject

package main

import (
	"jan-server/services/plm-chat-api/internal/domain"
	"jan-server/services/plm-chat-api/internal/infrastructure"
	"jan-server/services/plm-chat-api/internal/interfaces"
	"jan-server/services/plm-chat-api/internal/interfaces/httpserver/routes"

	"github.com/google/wire"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		routes.RouteProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
