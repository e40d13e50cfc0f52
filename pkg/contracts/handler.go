package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts a group of routes on the router it is given.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
