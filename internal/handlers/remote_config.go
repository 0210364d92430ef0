package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RemoteConfigHandler struct {
	db *gorm.DB
}

func NewRemoteConfigHandler(db *gorm.DB) *RemoteConfigHandler {
	return &RemoteConfigHandler{db: db}
}

// GetConfig returns all configuration values with their declared types (public).
func (h *RemoteConfigHandler) GetConfig(c *fiber.Ctx) error {
	result, err := h.values()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Failed to fetch configuration",
		})
	}
	return c.JSON(result)
}

// VersionCheck compares the client's version query parameter with min_app_version.
func (h *RemoteConfigHandler) VersionCheck(c *fiber.Ctx) error {
	current := strings.TrimSpace(c.Query("version"))
	if current == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "version query parameter is required",
		})
	}

	values, err := h.values()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Failed to fetch configuration",
		})
	}

	minVersion, _ := values[models.ConfigMinAppVersion].(string)
	force, _ := values[models.ConfigForceUpdate].(bool)
	message, _ := values[models.ConfigUpdateMessage].(string)
	maintenance, _ := values[models.ConfigMaintenanceMode].(bool)

	required := minVersion != "" && compareVersions(current, minVersion) < 0
	resp := dto.VersionCheckResponse{
		UpdateRequired: required,
		ForceUpdate:    required && force,
		MinVersion:     minVersion,
		CurrentVersion: current,
		Maintenance:    maintenance,
	}
	if required {
		resp.Message = message
	}
	return c.JSON(resp)
}

// SetConfigKey sets or updates a config key (admin only)
func (h *RemoteConfigHandler) SetConfigKey(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Key parameter is required",
		})
	}

	var payload dto.SetConfigRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Invalid request body",
		})
	}
	if err := validate.Struct(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Value is required and type must be one of string, bool, int, json",
		})
	}
	if payload.Type == "" {
		payload.Type = "string"
	}

	config := models.RemoteConfig{Key: key, Value: payload.Value, Type: payload.Type}
	err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "updated_at"}),
	}).Create(&config).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Failed to update config",
		})
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

// DeleteConfigKey deletes a config key (admin only)
func (h *RemoteConfigHandler) DeleteConfigKey(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Key parameter is required",
		})
	}

	result := h.db.Where("key = ?", key).Delete(&models.RemoteConfig{})
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

// SeedDefaults creates the default keys that are missing. Existing values are kept.
func (h *RemoteConfigHandler) SeedDefaults() error {
	defaults := []models.RemoteConfig{
		{Key: models.ConfigMinAppVersion, Value: "1.0.0", Type: "string"},
		{Key: models.ConfigForceUpdate, Value: "false", Type: "bool"},
		{Key: models.ConfigUpdateMessage, Value: "A new version of ToyRotator is available.", Type: "string"},
		{Key: models.ConfigMaintenanceMode, Value: "false", Type: "bool"},
	}
	for i := range defaults {
		var existing models.RemoteConfig
		err := h.db.Where("key = ?", defaults[i].Key).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := h.db.Create(&defaults[i]).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (h *RemoteConfigHandler) values() (map[string]interface{}, error) {
	var configs []models.RemoteConfig
	if err := h.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]interface{}, len(configs))
	for _, cfg := range configs {
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
		result[cfg.Key] = value
	}
	return result, nil
}

// compareVersions compares dotted numeric versions such as 1.4.2. A leading
// "v" and any pre-release suffix are ignored; missing parts count as zero.
func compareVersions(a, b string) int {
	pa, pb := versionParts(a), versionParts(b)
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func versionParts(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+ "); i >= 0 {
		v = v[:i]
	}
	fields := strings.Split(v, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, _ := strconv.Atoi(f)
		parts = append(parts, n)
	}
	return parts
}
