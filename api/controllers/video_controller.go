package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/sora-history-bot/catalog"
	"github.com/moyoez/sora-history-bot/selection"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

type VideoController struct {
	catalog *catalog.Store
	codec   *selection.Codec
}

func NewVideoController(store *catalog.Store, codec *selection.Codec) *VideoController {
	return &VideoController{catalog: store, codec: codec}
}

// HandleList returns the catalog with the token a button would carry for every entry.
// GET /api/self/v1/videos
func (v *VideoController) HandleList(c *gin.Context) {
	entries, err := v.catalog.List()
	if err != nil {
		tool.DefaultLogger.Errorf("[Videos] List failed: %v", err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to list videos"))
		return
	}
	items := make([]types.VideoListItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, types.VideoListItem{VideoEntry: entry, Token: v.codec.Encode(entry)})
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(types.VideoListResponse{Videos: items, Count: len(items)}))
}

// HandleDownload streams the video a selection token points at.
// GET /api/self/v1/videos/download?token=V:name.mp4
func (v *VideoController) HandleDownload(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: token"))
		return
	}
	name, err := v.codec.Decode(token)
	if err != nil {
		if errors.Is(err, selection.ErrNotFound) {
			c.JSON(http.StatusNotFound, tool.FastReturnError("Video no longer available"))
			return
		}
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Unknown token"))
		return
	}
	if !v.catalog.HasExtension(name) {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Video file not found"))
		return
	}
	if _, err := v.catalog.Size(name); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, tool.FastReturnError("Video file not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to read video"))
		return
	}
	path, err := v.catalog.Path(name)
	if err != nil {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Video file not found"))
		return
	}
	tool.DefaultLogger.Debugf("[Videos] Serving %s to %s", name, c.ClientIP())
	c.FileAttachment(path, name)
}
