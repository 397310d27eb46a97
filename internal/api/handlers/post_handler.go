package handlers

import (
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/queue"
	"github.com/maheshrc27/postcast/internal/service"
	"github.com/maheshrc27/postcast/internal/transfer"
)

type PostHandler struct {
	s     service.PostService
	queue *queue.Client
}

func NewPostHandler(service service.PostService, client *queue.Client) *PostHandler {
	return &PostHandler{s: service, queue: client}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["files"]
	}

	uploads, err := readUploads(files)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read files",
		})
	}

	posts, err := h.s.CreatePost(c.Context(), userID, &transfer.PostCreation{
		Content:       c.FormValue("content"),
		Hashtags:      splitList(c.FormValue("hashtags")),
		Platforms:     splitList(c.FormValue("platforms")),
		ScheduledDate: c.FormValue("scheduled_date"),
		Draft:         c.FormValue("draft") == "true",
	}, uploads)
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(posts)
}

func readUploads(files []*multipart.FileHeader) ([]transfer.MediaUpload, error) {
	uploads := make([]transfer.MediaUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, transfer.MediaUpload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.PostInfo(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	history, err := h.s.History(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	if history == nil {
		history = []*models.PostingHistory{}
	}

	return c.Status(fiber.StatusOK).JSON(history)
}

// PublishPost queues an immediate attempt for a scheduled post.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	post, err := h.s.PostInfo(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	if post.Status != models.PostStatusScheduled {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only scheduled posts can be published",
		})
	}

	err = h.queue.EnqueuePublishPost(queue.PublishPostPayload{PostID: post.ID})
	if err != nil {
		slog.Error(err.Error(), "post_id", post.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error queueing post",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Post queued for publishing",
	})
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	err := h.s.Schedule(c.Context(), GetUserID(c), c.Params("id"), c.FormValue("scheduled_date"))
	if err != nil {
		return sendError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	if err := h.s.Cancel(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return sendError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return sendError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) Register(router fiber.Router) {
	router.Post("/posts", h.CreatePost)
	router.Get("/posts", h.ListPosts)
	router.Get("/posts/:id", h.GetPost)
	router.Get("/posts/:id/history", h.PostHistory)
	router.Post("/posts/:id/publish", h.PublishPost)
	router.Post("/posts/:id/schedule", h.SchedulePost)
	router.Post("/posts/:id/cancel", h.CancelPost)
	router.Delete("/posts/:id", h.RemovePost)
}
