package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxUploadSize = 10 << 20

func (a *API) directConversation(c *gin.Context) {
	var req struct {
		ReceiverID domain.UserID `json:"receiverId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "receiverId required")
		return
	}
	conv, err := a.Store.FindOrCreateDirect(currentUser(c), req.ReceiverID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (a *API) createGroup(c *gin.Context) {
	var req struct {
		Name    string          `json:"name" binding:"required"`
		Members []domain.UserID `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name required")
		return
	}
	conv, err := a.Store.CreateGroup(req.Name, currentUser(c), req.Members)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (a *API) conversations(c *gin.Context) {
	me, ok := selfOnly(c, "userId")
	if !ok {
		return
	}
	convs, err := a.Store.ConversationsOf(me)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// createMessage persists a message. Clients relay the returned object with
// sendMessage over the socket.
func (a *API) createMessage(c *gin.Context) {
	var req struct {
		ConversationID domain.ConversationID `json:"conversationId"`
		Text           string                `json:"text"`
		Type           domain.MessageType    `json:"type"`
		ImageURL       string                `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid message")
		return
	}
	m := &domain.Message{
		ConversationID: req.ConversationID,
		Text:           req.Text,
		Type:           req.Type,
		ImageURL:       req.ImageURL,
	}
	if err := a.Store.AddMessage(currentUser(c), m); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (a *API) messages(c *gin.Context) {
	msgs, err := a.Store.Messages(domain.ConversationID(c.Param("conversationId")), currentUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// upload stores the multipart "file" under a random name and returns the URL
// it is served from.
func (a *API) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	if err := os.MkdirAll(a.Cfg.UploadDir, 0755); err != nil {
		respondErr(c, err)
		return
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, filepath.Join(a.Cfg.UploadDir, name)); err != nil {
		respondErr(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("user", string(currentUser(c))).Str("file", name).Int64("size", file.Size).Msg("upload")
	c.JSON(http.StatusCreated, gin.H{
		"url":  "/uploads/" + name,
		"name": file.Filename,
		"size": file.Size,
	})
}
