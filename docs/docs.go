// Package docs AgriConnect API.
//
// Documentation of the AgriConnect consultation API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://api.agriconnect.app
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/agriconnect/agriconnect-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/chat/room chat getOrCreateRoomID
// Returns the chat room for a farmer/expert pair, creating it on first contact.
// responses:
//   200: chatRoomResponse
//   201: chatRoomResponse

// A chat room between a farmer and an expert.
// swagger:response chatRoomResponse
type chatRoomResponseWrapper struct {
	// in:body
	Body models.ChatRoom
}

// swagger:route POST /api/v1/consult-orders consultOrders createConsultOrderID
// Creates a pending consultation order.
// responses:
//   201: consultOrderResponse

// A consultation order between a farmer and an expert.
// swagger:response consultOrderResponse
type consultOrderResponseWrapper struct {
	// in:body
	Body models.ConsultOrder
}
