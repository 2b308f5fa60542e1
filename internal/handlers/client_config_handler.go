package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/builtbyap/socrani-backend/internal/dto"
	"github.com/builtbyap/socrani-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientConfigHandler serves the settings the desktop overlay pulls on
// startup (feature flags, maintenance banner, defaults). The read endpoint
// sits behind the subscription gate; writes are admin-only.
type ClientConfigHandler struct {
	db *gorm.DB
}

func NewClientConfigHandler(db *gorm.DB) *ClientConfigHandler {
	return &ClientConfigHandler{db: db}
}

func (h *ClientConfigHandler) GetConfig(c *fiber.Ctx) error {
	var configs []models.ClientConfig
	if err := h.db.Find(&configs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Failed to fetch configuration",
		})
	}

	result := make(map[string]interface{})
	for _, cfg := range configs {
		result[cfg.Key] = typedValue(cfg)
	}

	return c.JSON(result)
}

// SetConfigKey sets or updates a config key (admin only).
func (h *ClientConfigHandler) SetConfigKey(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Key parameter is required",
		})
	}

	var payload struct {
		Value string `json:"value"`
		Type  string `json:"type"` // string, bool, int, json
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Invalid request body",
		})
	}

	if payload.Value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Value is required",
		})
	}
	if payload.Type == "" {
		payload.Type = "string"
	}

	var config models.ClientConfig
	err := h.db.Where("key = ?", key).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		config = models.ClientConfig{
			ID:        uuid.New(),
			Key:       key,
			Value:     payload.Value,
			Type:      payload.Type,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := h.db.Create(&config).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Failed to create config",
			})
		}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Failed to query config",
		})
	} else {
		config.Value = payload.Value
		config.Type = payload.Type
		config.UpdatedAt = time.Now()
		if err := h.db.Save(&config).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Failed to update config",
			})
		}
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Config updated successfully",
		"config": fiber.Map{
			"key":   config.Key,
			"value": config.Value,
			"type":  config.Type,
		},
	})
}

// DeleteConfigKey deletes a config key (admin only).
func (h *ClientConfigHandler) DeleteConfigKey(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Key parameter is required",
		})
	}

	result := h.db.Where("key = ?", key).Delete(&models.ClientConfig{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Failed to delete config",
		})
	}

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Config not found",
		})
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Config deleted successfully",
	})
}

// SeedDefaults creates default configuration keys that do not yet exist.
func (h *ClientConfigHandler) SeedDefaults() error {
	defaults := []models.ClientConfig{
		{Key: "overlay_enabled", Value: "true", Type: "bool"},
		{Key: "voice_input_enabled", Value: "true", Type: "bool"},
		{Key: "screen_capture_enabled", Value: "true", Type: "bool"},
		{Key: "maintenance_mode", Value: "false", Type: "bool"},
		{Key: "announcement_message", Value: "", Type: "string"},
	}

	for _, def := range defaults {
		var existing models.ClientConfig
		err := h.db.Where("key = ?", def.Key).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			def.ID = uuid.New()
			if err := h.db.Create(&def).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func typedValue(cfg models.ClientConfig) interface{} {
	var value interface{}
	switch cfg.Type {
	case "bool":
		value, _ = strconv.ParseBool(cfg.Value)
	case "int":
		value, _ = strconv.Atoi(cfg.Value)
	case "json":
		json.Unmarshal([]byte(cfg.Value), &value)
	default:
		value = cfg.Value
	}
	return value
}
