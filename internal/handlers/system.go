package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devpulse/devpulse/internal/services"
	"github.com/devpulse/devpulse/pkg/response"
)

type SystemHandler struct {
	configService  *services.SystemConfigService
	logService     *services.SystemLogService
	holidayService *services.HolidayService
}

func NewSystemHandler(db *gorm.DB, holidayService *services.HolidayService) *SystemHandler {
	return &SystemHandler{
		configService:  services.NewSystemConfigService(db),
		logService:     services.NewSystemLogService(db),
		holidayService: holidayService,
	}
}

// GetConfigGroup returns all config entries in a group
// GET /api/system/configs/:group
func (h *SystemHandler) GetConfigGroup(c *gin.Context) {
	configs, err := h.configService.GetByGroup(c.Param("group"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, configs)
}

// SetConfig updates one config entry
// PUT /api/system/configs
func (h *SystemHandler) SetConfig(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.Set(req.Key, req.Value); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "config updated"})
}

// GetLDAPConfig returns the LDAP settings (password masked)
// GET /api/system/ldap
func (h *SystemHandler) GetLDAPConfig(c *gin.Context) {
	response.Success(c, h.configService.GetLDAPConfig())
}

// UpdateLDAPConfig updates LDAP settings
// PUT /api/system/ldap
func (h *SystemHandler) UpdateLDAPConfig(c *gin.Context) {
	var req services.UpdateLDAPConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.UpdateLDAPConfig(&req); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "ldap config updated"})
}

// ListLogs returns paginated system logs
// GET /api/system/logs
func (h *SystemHandler) ListLogs(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.logService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, resp)
}

// GetLogModules returns the distinct modules present in system logs
// GET /api/system/logs/modules
func (h *SystemHandler) GetLogModules(c *gin.Context) {
	modules, err := h.logService.GetModules()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, modules)
}

// GetCountries lists countries supported by the holiday calendar
// GET /api/system/countries
func (h *SystemHandler) GetCountries(c *gin.Context) {
	response.Success(c, h.holidayService.GetSupportedCountries())
}
