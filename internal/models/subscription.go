package models

import "strings"

// Subscription is the persisted daily weather preference of one device.
type Subscription struct {
	Identity string `json:"-"`
	Active   bool   `json:"active"`
	Token    string `json:"token"`
}

// SubscriptionKey extracts the device identity from an Expo push token,
// e.g. "ExponentPushToken[abcd1234]" -> "abcd1234".
func SubscriptionKey(pushToken string) (string, error) {
	start := strings.IndexByte(pushToken, '[')
	if start < 0 {
		return "", ErrMalformedIdentity
	}
	rest := pushToken[start+1:]
	end := strings.IndexByte(rest, ']')
	if end <= 0 {
		return "", ErrMalformedIdentity
	}
	return rest[:end], nil
}

// NewSubscription builds the record written for a push token.
func NewSubscription(pushToken string, active bool) (Subscription, error) {
	identity, err := SubscriptionKey(pushToken)
	if err != nil {
		return Subscription{}, err
	}
	return Subscription{Identity: identity, Active: active, Token: pushToken}, nil
}
