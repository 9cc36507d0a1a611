// Package htmresearch is the public entry point for assembling HTM
// classification networks, toggling their learning phase and keeping the
// configurations and assembly summaries in a store.
package htmresearch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vitaly-krugl/htmresearch/internal/datasource"
	"github.com/vitaly-krugl/htmresearch/internal/encoders"
	"github.com/vitaly-krugl/htmresearch/internal/engine"
	"github.com/vitaly-krugl/htmresearch/internal/model"
	"github.com/vitaly-krugl/htmresearch/internal/netfactory"
	"github.com/vitaly-krugl/htmresearch/internal/storage"
)

const defaultDBPath = "htmnet.db"

var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrConfigNotFound  = errors.New("network config not found")
)

type Options struct {
	StoreKind string
	DBPath    string
}

type Client struct {
	store storage.Store

	mu          sync.Mutex
	initialized bool
	networks    map[string]*assembly
}

type assembly struct {
	network *engine.Network
	config  model.NetworkConfig
	summary model.AssemblySummary
}

type BuildRequest struct {
	// ConfigName selects a stored configuration; Config is used when empty.
	ConfigName string
	Config     model.NetworkConfig
	Source     datasource.DataSource
	// Encoder is bound to the sensor when the configuration has no encoders
	// mapping.
	Encoder encoders.Encoder
	// LearningMode is applied to every non-sensor region after assembly.
	LearningMode bool
	// SaveConfigAs stores the configuration, with the observed scalar
	// bounds, under this name.
	SaveConfigAs string
}

type BuildResult struct {
	ID      string
	Network *engine.Network
	Stages  netfactory.Stages
	// Config is the configuration the network was built from, after scalar
	// bound injection. The request's configuration is not modified.
	Config  model.NetworkConfig
	Summary model.AssemblySummary
}

type SummariesRequest struct {
	Limit int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, networks: make(map[string]*assembly)}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initLocked(ctx)
}

func (c *Client) initLocked(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Build assembles, initializes and records a network.
func (c *Client) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	if req.Source == nil {
		return BuildResult{}, errors.New("build requires a data source")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return BuildResult{}, err
	}

	cfg := req.Config.Clone()
	if req.ConfigName != "" {
		record, ok, err := c.store.GetConfig(ctx, req.ConfigName)
		if err != nil {
			return BuildResult{}, err
		}
		if !ok {
			return BuildResult{}, fmt.Errorf("%w: %s", ErrConfigNotFound, req.ConfigName)
		}
		cfg = record.Config
	}

	net, err := netfactory.CreateAndConfigureNetwork(req.Source, &cfg, req.Encoder)
	if err != nil {
		return BuildResult{}, err
	}
	stages, err := netfactory.SetRegionLearning(net, &cfg, req.LearningMode)
	if err != nil {
		return BuildResult{}, err
	}

	id := uuid.NewString()
	summary, err := Summarize(id, net, cfg, req.LearningMode)
	if err != nil {
		return BuildResult{}, err
	}
	if err := c.store.SaveAssemblySummary(ctx, summary); err != nil {
		return BuildResult{}, err
	}
	if req.SaveConfigAs != "" {
		record := model.ConfigRecord{
			VersionedRecord: storage.Stamp(),
			Name:            req.SaveConfigAs,
			UpdatedAt:       summary.CreatedAt,
			Config:          cfg,
		}
		if err := c.store.SaveConfig(ctx, record); err != nil {
			return BuildResult{}, err
		}
	}

	c.networks[id] = &assembly{network: net, config: cfg, summary: summary}
	log.Debug("network assembled", "id", id, "regions", len(summary.Regions), "links", len(summary.Links))
	return BuildResult{ID: id, Network: net, Stages: stages, Config: cfg.Clone(), Summary: summary}, nil
}

// SetLearning toggles learning on a network built by this client and
// records the new mode in its summary.
func (c *Client) SetLearning(ctx context.Context, id string, learningMode bool) (netfactory.Stages, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	built, ok := c.networks[id]
	if !ok {
		return netfactory.Stages{}, fmt.Errorf("%w: %s", ErrNetworkNotFound, id)
	}
	stages, err := netfactory.SetRegionLearning(built.network, &built.config, learningMode)
	if err != nil {
		return netfactory.Stages{}, err
	}
	built.summary.LearningMode = learningMode
	if err := c.store.SaveAssemblySummary(ctx, built.summary); err != nil {
		return netfactory.Stages{}, err
	}
	return stages, nil
}

// Network returns a network built by this client.
func (c *Client) Network(id string) (*engine.Network, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	built, ok := c.networks[id]
	if !ok {
		return nil, false
	}
	return built.network, true
}

func (c *Client) SaveConfig(ctx context.Context, name string, cfg model.NetworkConfig) error {
	if name == "" {
		return errors.New("config name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return err
	}
	return c.store.SaveConfig(ctx, model.ConfigRecord{
		VersionedRecord: storage.Stamp(),
		Name:            name,
		UpdatedAt:       time.Now().UTC(),
		Config:          cfg.Clone(),
	})
}

func (c *Client) Config(ctx context.Context, name string) (model.NetworkConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return model.NetworkConfig{}, err
	}
	record, ok, err := c.store.GetConfig(ctx, name)
	if err != nil {
		return model.NetworkConfig{}, err
	}
	if !ok {
		return model.NetworkConfig{}, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
	}
	return record.Config, nil
}

func (c *Client) Configs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return nil, err
	}
	return c.store.ListConfigs(ctx)
}

// Summaries lists stored assembly summaries, newest first.
func (c *Client) Summaries(ctx context.Context, req SummariesRequest) ([]model.AssemblySummary, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return nil, err
	}

	summaries, err := c.store.ListAssemblySummaries(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if req.Limit > 0 && len(summaries) > req.Limit {
		summaries = summaries[:req.Limit]
	}
	return summaries, nil
}

func (c *Client) Summary(ctx context.Context, id string) (model.AssemblySummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return model.AssemblySummary{}, err
	}
	summary, ok, err := c.store.GetAssemblySummary(ctx, id)
	if err != nil {
		return model.AssemblySummary{}, err
	}
	if !ok {
		return model.AssemblySummary{}, fmt.Errorf("%w: %s", ErrNetworkNotFound, id)
	}
	return summary, nil
}

// Summarize describes an assembled network: regions in creation order with
// the width of their default output, and every link.
func Summarize(id string, net *engine.Network, cfg model.NetworkConfig, learningMode bool) (model.AssemblySummary, error) {
	summary := model.AssemblySummary{
		VersionedRecord: storage.Stamp(),
		ID:              id,
		CreatedAt:       time.Now().UTC(),
		LearningMode:    learningMode,
		Config:          cfg.Clone(),
	}

	for _, handle := range net.Regions() {
		record := model.RegionRecord{Name: handle.Name(), Type: handle.Type()}
		if sensor, ok := handle.GetSelf().(netfactory.SensorRegion); ok && handle.Name() == cfg.SensorRegionConfig.RegionName {
			summary.EncoderWidth = sensor.Encoder().Width()
		}
		if widther, ok := handle.GetSelf().(engine.OutputWidther); ok {
			if output, ok := handle.Spec().DefaultOutput(); ok {
				width, err := widther.OutputWidth(output)
				if err != nil {
					return model.AssemblySummary{}, fmt.Errorf("region %s: %w", handle.Name(), err)
				}
				record.OutputWidth = width
			}
		}
		summary.Regions = append(summary.Regions, record)
	}

	for _, link := range net.Links() {
		summary.Links = append(summary.Links, model.LinkRecord{
			Source:    link.Source,
			Dest:      link.Dest,
			SrcOutput: link.SrcOutput,
			DestInput: link.DestInput,
		})
	}
	return summary, nil
}
