package api

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"firetvcontrol/models"
	"firetvcontrol/service"
)

// Identifier validation lives here, at the boundary: the core may assume
// identifiers reaching it are syntactically valid.
var (
	validDeviceID = regexp.MustCompile(`^[-\w]+$`)
	validAppID    = regexp.MustCompile(`^[a-zA-Z][a-z.A-Z]+$`)
)

// isValidHost checks for an <address>:<port> shape with a numeric port.
func isValidHost(host string) bool {
	parts := strings.Split(host, ":")
	if len(parts) != 2 {
		return false
	}
	port, err := strconv.Atoi(parts[1])
	return err == nil && port > 0
}

// AddDeviceRequest registers a device. ADBKey optionally points at a vendor
// key file; ADBServer (address:port) switches the session to the relayed
// backend.
type AddDeviceRequest struct {
	DeviceID  string `json:"device_id"`
	Host      string `json:"host"`
	ADBKey    string `json:"adbkey,omitempty"`
	ADBServer string `json:"adb_server,omitempty"`
}

// AddDevice registers a device session.
func AddDevice(c *gin.Context, registry *service.DeviceRegistry) {
	var req AddDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request body"))
		return
	}
	if !validDeviceID.MatchString(req.DeviceID) || !isValidHost(req.Host) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid device_id or host"))
		return
	}
	if req.ADBServer != "" && !isValidHost(req.ADBServer) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid adb_server"))
		return
	}
	if err := registry.Add(req.DeviceID, req.Host, req.ADBKey, req.ADBServer); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("device registered"))
}

// ListDevices returns every registered device with its derived state.
func ListDevices(c *gin.Context, registry *service.DeviceRegistry) {
	devices := make(map[string]models.DeviceSummary)
	for id, session := range registry.All() {
		devices[id] = models.DeviceSummary{
			Host:  session.Host(),
			State: session.State(),
		}
	}
	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"devices": devices}))
}

// DeviceState returns the derived state for one device.
func DeviceState(c *gin.Context, registry *service.DeviceRegistry) {
	session := getSession(c, registry)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"state": session.State()}))
}

// RunningApps returns the device's process listing, oldest first.
func RunningApps(c *gin.Context, registry *service.DeviceRegistry) {
	session := getSession(c, registry)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"running_apps": session.RunningApps()}))
}

// CurrentApp returns the foreground app, or null when unknown.
func CurrentApp(c *gin.Context, registry *service.DeviceRegistry) {
	session := getSession(c, registry)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"current_app": session.CurrentApp()}))
}

// AppState reports whether one app is foreground, background, or stopped.
func AppState(c *gin.Context, registry *service.DeviceRegistry) {
	appID := c.Param("app_id")
	if !validAppID.MatchString(appID) {
		c.JSON(http.StatusForbidden, models.ErrorResponse("invalid app_id"))
		return
	}
	session := getSession(c, registry)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"status": session.AppState(appID)}))
}

// DeviceAction invokes one named zero-argument operation. Unknown names
// are rejected outright; a lock timeout is a retryable failure, distinct
// from a disconnected device (which is a successful no-op).
func DeviceAction(c *gin.Context, registry *service.DeviceRegistry, dispatcher *service.Dispatcher) {
	deviceID := c.Param("device_id")
	if registry.Get(deviceID) == nil {
		c.JSON(http.StatusOK, models.ErrorResponse("device not found"))
		return
	}
	err := dispatcher.Dispatch(deviceID, c.Param("action_id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, models.MessageResponse("action dispatched"))
	case errors.Is(err, service.ErrUnknownOperation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
	case errors.Is(err, service.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
	}
}

// LaunchApp starts an app through its launcher intent and relays the
// monkey output.
func LaunchApp(c *gin.Context, registry *service.DeviceRegistry) {
	appIntent(c, registry, (*service.Session).LaunchApp)
}

// StopApp returns the device to the launcher.
func StopApp(c *gin.Context, registry *service.DeviceRegistry) {
	appIntent(c, registry, (*service.Session).StopApp)
}

func appIntent(c *gin.Context, registry *service.DeviceRegistry, fn func(*service.Session, string) (models.IntentResult, error)) {
	appID := c.Param("app_id")
	if !validAppID.MatchString(appID) {
		c.JSON(http.StatusForbidden, models.ErrorResponse("invalid app_id"))
		return
	}
	session := getSession(c, registry)
	if session == nil {
		return
	}
	result, err := fn(session, appID)
	if err != nil {
		if errors.Is(err, service.ErrLockTimeout) {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(result))
}

// ConnectDevice forces a reconnect attempt. Success means the attempt was
// made, not that the device came back.
func ConnectDevice(c *gin.Context, registry *service.DeviceRegistry) {
	session := getSession(c, registry)
	if session == nil {
		return
	}
	session.Connect()
	c.JSON(http.StatusOK, models.MessageResponse("connection attempted"))
}

// RemoveDevice tears down a registration.
func RemoveDevice(c *gin.Context, registry *service.DeviceRegistry) {
	deviceID := c.Param("device_id")
	if !validDeviceID.MatchString(deviceID) {
		c.JSON(http.StatusForbidden, models.ErrorResponse("invalid device_id"))
		return
	}
	if !registry.Remove(deviceID) {
		c.JSON(http.StatusNotFound, models.ErrorResponse("device not found"))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("device removed"))
}

// getSession validates the device_id param and resolves its session,
// writing the error response itself when either step fails.
func getSession(c *gin.Context, registry *service.DeviceRegistry) *service.Session {
	deviceID := c.Param("device_id")
	if !validDeviceID.MatchString(deviceID) {
		c.JSON(http.StatusForbidden, models.ErrorResponse("invalid device_id"))
		return nil
	}
	session := registry.Get(deviceID)
	if session == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse("device not found"))
		return nil
	}
	return session
}
