package catalog

import (
	"errors"

	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/storage"
)

func (c *Catalog) AddAdvertisement(text, url string) (storage.Advertisement, bool) {
	ad, err := c.repo.InsertAdvertisement(text, url)
	if err != nil {
		c.log.Error("adding advertisement", logger.Error(err))
		return storage.Advertisement{}, false
	}
	return ad, true
}

// ListActiveAdvertisements returns active ads ordered by id.
func (c *Catalog) ListActiveAdvertisements() []storage.Advertisement {
	ads, err := c.repo.ListActiveAdvertisements()
	if err != nil {
		c.log.Error("listing advertisements", logger.Error(err))
		return nil
	}
	return ads
}

// SampleActiveAdvertisements returns up to limit distinct active ads in random order.
func (c *Catalog) SampleActiveAdvertisements(limit int) []storage.Advertisement {
	if limit < 1 {
		return nil
	}
	ads, err := c.repo.SampleActiveAdvertisements(limit)
	if err != nil {
		c.log.Error("sampling advertisements", logger.Error(err))
		return nil
	}
	return ads
}

// DeactivateAdvertisement soft-deletes an ad. It reports false when the id is
// unknown or already inactive.
func (c *Catalog) DeactivateAdvertisement(id int64) bool {
	return c.adWrite("deactivating advertisement", id, c.repo.DeactivateAdvertisement(id))
}

// EditAdvertisement replaces text and url of an active ad.
func (c *Catalog) EditAdvertisement(id int64, text, url string) bool {
	return c.adWrite("editing advertisement", id, c.repo.UpdateAdvertisement(id, text, url))
}

func (c *Catalog) adWrite(op string, id int64, err error) bool {
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		c.log.Error(op, logger.Int64("ad_id", id), logger.Error(err))
		return false
	}
	return true
}

// GetAdvertisement returns the ad only while it is active.
func (c *Catalog) GetAdvertisement(id int64) (storage.Advertisement, bool) {
	ad, err := c.repo.GetActiveAdvertisement(id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Advertisement{}, false
	}
	if err != nil {
		c.log.Error("getting advertisement", logger.Int64("ad_id", id), logger.Error(err))
		return storage.Advertisement{}, false
	}
	return ad, true
}
