package agent

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/remote"
	"github.com/corralhq/corral/internal/version"
	"github.com/gin-gonic/gin"
)

// handleHealth reports agent liveness along with identity and uptime.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, remote.APIResponse{
		Status: "ok",
		Data: gin.H{
			"node":    s.nodeName,
			"version": version.CorraldVersion,
			"uptime":  time.Since(s.startTime).String(),
		},
	})
}

// handleExec runs a command through the local registry on behalf of a remote
// caller. Stdout is captured and returned in the response body so the
// transport can relay it; stderr follows the delivery protocol back to the
// origin node.
func (s *Server) handleExec(c *gin.Context) {
	var req remote.ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, remote.APIResponse{
			Status: "error",
			Error:  "invalid exec request: " + err.Error(),
		})
		return
	}

	if len(req.Argv) == 0 {
		c.JSON(http.StatusBadRequest, remote.APIResponse{
			Status: "error",
			Error:  "exec request requires a non-empty argv",
		})
		return
	}

	// Header fallback for callers that propagate origin out of band
	if req.OriginNode == "" {
		req.OriginNode = c.GetHeader(remote.HeaderOriginNode)
		req.OriginAddr = c.GetHeader(remote.HeaderOriginAddr)
	}

	origin := command.Origin{Node: req.OriginNode, Addr: req.OriginAddr}
	if origin.Node == s.nodeName {
		// Execution came back around to the issuing node; write stderr
		// directly instead of looping through our own API
		origin = command.Origin{}
	}

	var stdout, stderr bytes.Buffer

	runner := &command.Runner{
		Registry: s.registry,
		Pipeline: &command.Pipeline{
			Registry:      s.registry,
			Stdout:        &stdout,
			Stderr:        &stderr,
			ResolveOrigin: func() command.Origin { return origin },
			Remote:        s.deliverer,
		},
	}

	exitCode := runner.Run(req.Argv)

	// Anything that landed on the local error stream belongs to this node's
	// operator, not the response
	if stderr.Len() > 0 {
		s.stderr.Write(stderr.Bytes())
	}

	c.JSON(http.StatusOK, remote.ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
	})
}

// handleNodes reports cluster membership through the registry's node
// finder. CLI processes that never join the gossip layer use this to
// discover fan-out targets.
func (s *Server) handleNodes(c *gin.Context) {
	nodes, err := s.registry.FindNodes()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, remote.APIResponse{
			Status: "error",
			Error:  "cluster membership unavailable: " + err.Error(),
		})
		return
	}

	members := make([]remote.NodeInfo, 0, len(nodes))
	for _, node := range nodes {
		members = append(members, remote.NodeInfo{Name: node.Name, Address: node.Addr})
	}

	c.JSON(http.StatusOK, remote.APIResponse{Status: "ok", Data: members})
}

// handleStderr accepts a remote error-stream write and puts the text on
// this node's stderr. Step two of the delivery protocol, receiving side.
func (s *Server) handleStderr(c *gin.Context) {
	var req remote.StderrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, remote.APIResponse{
			Status: "error",
			Error:  "invalid stderr request: " + err.Error(),
		})
		return
	}

	if _, err := s.stderr.Write([]byte(req.Text)); err != nil {
		c.JSON(http.StatusInternalServerError, remote.APIResponse{
			Status: "error",
			Error:  "stderr write failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, remote.APIResponse{Status: "ok"})
}

// handleConfigGet reads a config key through the registry callbacks.
func (s *Server) handleConfigGet(c *gin.Context) {
	key := c.Param("key")

	value, err := s.registry.GetConfig(key)
	if err != nil {
		var cfgErr *command.ConfigError
		status := http.StatusInternalServerError
		if errors.As(err, &cfgErr) {
			status = http.StatusNotFound
		}
		c.JSON(status, remote.APIResponse{Status: "error", Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, remote.APIResponse{Status: "ok", Data: value})
}

// handleConfigSet mutates a config key. The registry enforces the
// fail-closed whitelist; keys outside it are rejected before any callback
// runs.
func (s *Server) handleConfigSet(c *gin.Context) {
	key := c.Param("key")

	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, remote.APIResponse{
			Status: "error",
			Error:  "invalid config request: " + err.Error(),
		})
		return
	}

	if err := s.registry.SetConfig(key, req.Value); err != nil {
		var cfgErr *command.ConfigError
		status := http.StatusInternalServerError
		if errors.As(err, &cfgErr) {
			status = http.StatusForbidden
		}
		c.JSON(status, remote.APIResponse{Status: "error", Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, remote.APIResponse{Status: "ok"})
}
