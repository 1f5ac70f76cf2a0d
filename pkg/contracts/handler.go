package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Group registers several handlers on one router.
type Group []Handler

func (g Group) RegisterRoutes(router *httprouter.Router) {
	for _, h := range g {
		h.RegisterRoutes(router)
	}
}
