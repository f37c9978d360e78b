package sweep

import (
	"sync"

	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/persistence"

	"go.uber.org/zap"
)

// Collector receives run results from concurrent workers and handles them serially.
// Every accepted result is kept in memory and handed to an asynchronous persistence loop.
type Collector struct {
	results         []models.RunResult
	repo            persistence.ResultRepository
	eventChannel    chan models.RunResult
	persistenceChan chan *models.RunResult
	wg              sync.WaitGroup
	mu              sync.Mutex
	saveErrors      int
	logger          *zap.Logger
}

// NewCollector creates a new Collector. repo may be nil to keep results in memory only.
func NewCollector(repo persistence.ResultRepository, logger *zap.Logger) *Collector {
	return &Collector{
		repo:            repo,
		eventChannel:    make(chan models.RunResult, 256),
		persistenceChan: make(chan *models.RunResult, 128),
		logger:          logger,
	}
}

// Start begins the collector's event processing and persistence loops.
func (c *Collector) Start() {
	c.wg.Add(2)
	go c.eventLoop()
	go c.persistenceLoop()
	c.logger.Sugar().Info("Collector started.")
}

// Stop drains every dispatched result, waits for persistence, and shuts down.
// Dispatch must not be called after Stop.
func (c *Collector) Stop() {
	close(c.eventChannel)
	c.wg.Wait()
	c.logger.Sugar().Info("Collector stopped.")
}

// Dispatch sends a result to the Collector for processing.
func (c *Collector) Dispatch(result models.RunResult) {
	c.eventChannel <- result
}

// Results returns a copy of every result processed so far, in arrival order.
func (c *Collector) Results() []models.RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RunResult, len(c.results))
	copy(out, c.results)
	return out
}

// SaveErrors returns how many results failed to persist.
func (c *Collector) SaveErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveErrors
}

// eventLoop is the core processing loop that handles all incoming results serially.
func (c *Collector) eventLoop() {
	defer c.wg.Done()
	defer close(c.persistenceChan)
	for result := range c.eventChannel {
		c.mu.Lock()
		c.results = append(c.results, result)
		c.mu.Unlock()

		if result.Error != "" {
			c.logger.Sugar().Warnf("Run %s failed: %s", result.RunID, result.Error)
		} else {
			c.logger.Sugar().Infof("Run %s finished: final value %.2f, sharpe %.2f",
				result.RunID, result.Summary.FinalValue, result.Summary.SharpeRatio)
		}

		toSave := result
		c.persistenceChan <- &toSave
	}
}

// persistenceLoop handles the asynchronous saving of results.
func (c *Collector) persistenceLoop() {
	defer c.wg.Done()
	for result := range c.persistenceChan {
		if c.repo == nil {
			continue
		}
		if err := c.repo.SaveResult(result); err != nil {
			c.mu.Lock()
			c.saveErrors++
			c.mu.Unlock()
			c.logger.Sugar().Errorf("Failed to save result %s: %v", result.RunID, err)
		}
	}
}
