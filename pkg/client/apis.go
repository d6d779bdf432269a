package client

import (
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/joule-sh/joule/pkg/monitor"
	"github.com/joule-sh/joule/pkg/types"
)

func (c *Client) GetPower() (*types.PowerState, error) {
	ret, err := c.Get("/power")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get power state")
	}

	var st types.PowerState
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal power state")
	}
	return &st, nil
}

func (c *Client) GetEnergy() (*monitor.EnergySummary, error) {
	ret, err := c.Get("/energy")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get energy summary")
	}

	var sum monitor.EnergySummary
	if err := json.Unmarshal([]byte(ret), &sum); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal energy summary")
	}
	return &sum, nil
}

func (c *Client) GetHistory() (*monitor.HistoryResponse, error) {
	ret, err := c.Get("/history")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get history")
	}

	var hist monitor.HistoryResponse
	if err := json.Unmarshal([]byte(ret), &hist); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal history")
	}
	return &hist, nil
}

func (c *Client) GetSampler() (*types.SamplerState, error) {
	ret, err := c.Get("/sampler")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get sampler state")
	}

	var st types.SamplerState
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal sampler state")
	}
	return &st, nil
}

func (c *Client) GetRate() (*monitor.RateConfig, error) {
	ret, err := c.Get("/rate")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get rate config")
	}

	var rc monitor.RateConfig
	if err := json.Unmarshal([]byte(ret), &rc); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal rate config")
	}
	return &rc, nil
}

func (c *Client) SetRate(ratePerKWh float64) (string, error) {
	return c.Put("/rate", strconv.FormatFloat(ratePerKWh, 'f', -1, 64))
}

func (c *Client) SetZip(zip string) (string, error) {
	payload, err := json.Marshal(zip)
	if err != nil {
		return "", err
	}
	return c.Put("/zip", string(payload))
}

func (c *Client) SetAutoDetect(enabled bool) (string, error) {
	return c.Put("/auto-detect", strconv.FormatBool(enabled))
}

func (c *Client) SetCadence(foreground bool) (string, error) {
	return c.Put("/cadence", strconv.FormatBool(foreground))
}

func (c *Client) ResetLifetime() (string, error) {
	return c.Send("POST", "/reset-lifetime", "")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	// Remove "" around JSON string. I don't want to use a JSON decoder just for this.
	if len(ret) >= 2 && ret[0] == '"' && ret[len(ret)-1] == '"' {
		ret = ret[1 : len(ret)-1]
	}
	return ret, nil
}
