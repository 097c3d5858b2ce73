package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docpress/internal/config"
	"docpress/internal/domain"
	"docpress/internal/infra/proc"
)

// ServiceHandlers exposes the managed tool endpoints. Only tools declared in
// config can be launched; the registry owns the processes.
type ServiceHandlers struct {
	Config  config.Config
	Manager *proc.Manager
}

type launchRequest struct {
	Tool string `json:"tool"`
}

// HandleLaunch starts a declared tool and returns its service record.
func (h *ServiceHandlers) HandleLaunch(c *fiber.Ctx) error {
	var req launchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}
	if req.Tool == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Tool name is required")
	}

	spec, ok := h.Config.Tool(req.Tool)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, domain.ErrUnknownTool.Error())
	}

	rec, err := h.Manager.Launch(spec)
	if err != nil {
		return serviceError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// HandleListServices lists all running tools, oldest first.
func (h *ServiceHandlers) HandleListServices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"services": h.Manager.List()})
}

// HandleGetService returns one service record.
func (h *ServiceHandlers) HandleGetService(c *fiber.Ctx) error {
	rec, err := h.Manager.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(rec)
}

// HandleServiceHealth probes the tool's HTTP health endpoint. Tools without
// a port report unhealthy.
func (h *ServiceHandlers) HandleServiceHealth(c *fiber.Ctx) error {
	healthy, err := h.Manager.Healthy(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"healthy": healthy})
}

// HandleServiceLogs returns the captured output tail of the tool.
func (h *ServiceHandlers) HandleServiceLogs(c *fiber.Ctx) error {
	lines, err := h.Manager.Logs(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"lines": lines})
}

// HandleStopService terminates the tool and removes its record.
func (h *ServiceHandlers) HandleStopService(c *fiber.Ctx) error {
	if err := h.Manager.Stop(c.Params("id")); err != nil {
		return serviceError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// serviceError maps registry errors onto HTTP errors. Unrecognized ones are
// spawn failures reported by the tool itself.
func serviceError(err error) error {
	switch {
	case errors.Is(err, domain.ErrServiceNotFound), errors.Is(err, domain.ErrUnknownTool):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrToolAlreadyRunning):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, "Tool launch failed: "+err.Error())
	}
}
