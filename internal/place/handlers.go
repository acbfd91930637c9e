package place

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// FeedTopic receives every place event; each event is also sent on a topic
// named after the place id.
const FeedTopic = "all"

// Broadcaster delivers change events to feed subscribers.
type Broadcaster interface {
	Broadcast(topic string, payload []byte)
}

type Event struct {
	Action string `json:"action"`
	Place  View   `json:"place"`
}

func RegisterRoutes(r fiber.Router, repo *Repository, feed Broadcaster) {
	r.Get("/", func(c *fiber.Ctx) error {
		places, err := repo.List(c.Context(), ListParams{
			Search:   c.Query("search"),
			Ordering: c.Query("ordering"),
		})
		if err != nil {
			return err
		}
		return c.JSON(Views(places))
	})

	r.Post("/", func(c *fiber.Ctx) error {
		changes, err := DecodePlace(c.Body(), false)
		if err != nil {
			return badRequest(c, err)
		}
		created, err := repo.Create(c.Context(), changes.Place)
		if err != nil {
			return err
		}
		view := created.View()
		publish(feed, "created", view)
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		id, ok := placeID(c)
		if !ok {
			return notFound(c)
		}
		p, err := repo.Get(c.Context(), id)
		if errors.Is(err, ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			return err
		}
		return c.JSON(p.View())
	})

	r.Put("/:id", updateHandler(repo, feed, false))
	r.Patch("/:id", updateHandler(repo, feed, true))

	r.Delete("/:id", func(c *fiber.Ctx) error {
		id, ok := placeID(c)
		if !ok {
			return notFound(c)
		}
		deleted, err := repo.Delete(c.Context(), id)
		if errors.Is(err, ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			return err
		}
		view := deleted.View()
		publish(feed, "deleted", view)
		return c.JSON(view)
	})
}

func updateHandler(repo *Repository, feed Broadcaster, partial bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := placeID(c)
		if !ok {
			return notFound(c)
		}
		changes, err := DecodePlace(c.Body(), partial)
		if err != nil {
			return badRequest(c, err)
		}
		updated, err := repo.Update(c.Context(), id, changes, partial)
		if errors.Is(err, ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			return err
		}
		view := updated.View()
		publish(feed, "updated", view)
		return c.JSON(view)
	}
}

// placeID returns the canonical form of the :id path parameter. Anything
// that is not a UUID cannot name a place.
func placeID(c *fiber.Ctx) (string, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Not found."})
}

func badRequest(c *fiber.Ctx, err error) error {
	var fieldErrs ValidationErrors
	if errors.As(err, &fieldErrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fieldErrs)
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": err.Error()})
}

func publish(feed Broadcaster, action string, view View) {
	if feed == nil {
		return
	}
	payload, err := json.Marshal(Event{Action: action, Place: view})
	if err != nil {
		log.Printf("place event encode error: %v", err)
		return
	}
	feed.Broadcast(FeedTopic, payload)
	feed.Broadcast(view.ID, payload)
}
