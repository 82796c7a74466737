package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/folioserve/folio-live/internal/repository"
	"github.com/folioserve/folio-live/internal/service"
	"github.com/folioserve/folio-live/pkg/log"
	"github.com/folioserve/folio-live/pkg/response"
)

// registerContent mounts the standard CRUD surface for one collection:
// public reads, auth-gated writes.
func registerContent[T repository.Entity[T]](g *gin.RouterGroup, svc *service.Content[T], requireAuth gin.HandlerFunc) {
	g.GET("", func(c *gin.Context) {
		ctx := c.Request.Context()
		items, err := svc.List(ctx)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to list collection")
			response.InternalError(c, "failed to list items")
			return
		}
		response.Success(c, items)
	})

	g.GET("/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		item, err := svc.Get(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				response.NotFound(c, "item not found")
				return
			}
			log.Ctx(ctx).Error().Err(err).Msg("failed to get item")
			response.InternalError(c, "failed to get item")
			return
		}
		response.Success(c, item)
	})

	g.POST("", requireAuth, func(c *gin.Context) {
		ctx := c.Request.Context()

		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		created, err := svc.Create(ctx, item)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to create item")
			response.InternalError(c, "failed to create item")
			return
		}
		response.Created(c, created)
	})

	g.PUT("/:id", requireAuth, func(c *gin.Context) {
		ctx := c.Request.Context()

		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		updated, err := svc.Update(ctx, c.Param("id"), item)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				response.NotFound(c, "item not found")
				return
			}
			log.Ctx(ctx).Error().Err(err).Msg("failed to update item")
			response.InternalError(c, "failed to update item")
			return
		}
		response.Success(c, updated)
	})

	g.DELETE("/:id", requireAuth, func(c *gin.Context) {
		ctx := c.Request.Context()

		if err := svc.Delete(ctx, c.Param("id")); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				response.NotFound(c, "item not found")
				return
			}
			log.Ctx(ctx).Error().Err(err).Msg("failed to delete item")
			response.InternalError(c, "failed to delete item")
			return
		}
		response.Success(c, gin.H{"deleted": c.Param("id")})
	})
}
