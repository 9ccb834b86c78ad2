package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCloseCode(t *testing.T) {
	tests := []struct {
		code   int
		action CloseAction
	}{
		{CloseNormal, ActionReconnect},
		{CloseGoingAway, ActionReconnect},
		{CloseAbnormal, ActionResume},
		{CloseUnknownError, ActionResume},
		{CloseUnknownOpcode, ActionResume},
		{CloseDecodeError, ActionResume},
		{CloseNotAuthenticated, ActionResume},
		{CloseAuthenticationFailed, ActionFatal},
		{CloseAlreadyAuthenticated, ActionResume},
		{CloseInvalidSeq, ActionReconnect},
		{CloseRateLimited, ActionResume},
		{CloseSessionTimedOut, ActionReconnect},
		{CloseInvalidShard, ActionFatal},
		{CloseShardingRequired, ActionFatal},
		{CloseInvalidAPIVersion, ActionFatal},
		{CloseInvalidIntents, ActionFatal},
		{CloseDisallowedIntents, ActionFatal},
		{CloseZombie, ActionResume},
		{4999, ActionReconnect},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.action, ClassifyCloseCode(tt.code), "code %d", tt.code)
	}
}

func TestCloseError(t *testing.T) {
	var err error = &CloseError{Code: CloseAuthenticationFailed, Reason: "Authentication failed.", Action: ActionFatal}

	var closeErr *CloseError
	assert.True(t, errors.As(err, &closeErr))
	assert.True(t, closeErr.Fatal())
	assert.Equal(t, "gateway: closed with code 4004 (authentication failed): Authentication failed.", err.Error())
	assert.Equal(t, "gateway: closed with code 4999 (unknown close code)", (&CloseError{Code: 4999}).Error())
}
