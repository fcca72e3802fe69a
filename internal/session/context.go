package session

import (
	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/platform/access"
)

const actorKey = "session_actor"

func SetActor(c *gin.Context, a access.Actor) {
	c.Set(actorKey, a)
}

// ActorFrom returns the request's actor, or the zero Actor for anonymous requests.
func ActorFrom(c *gin.Context) access.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return access.Actor{}
	}
	a, _ := v.(access.Actor)
	return a
}
