package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/mapgen"
)

// MapStorage — кэш сгенерированных пирамид на BadgerDB. Сетки хранятся
// сжатыми zstd, с контрольной суммой: при загрузке значения ячеек и
// размеры восстанавливаются бит-в-бит, иначе гарантия детерминизма
// теряет смысл.
type MapStorage struct {
	db      *badger.DB
	dbPath  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// SnapshotMeta описывает сохранённый снапшот пирамиды
type SnapshotMeta struct {
	ID        string      `json:"id"`
	Seed      int64       `json:"seed"`
	WorldSize int         `json:"world_size"`
	CreatedAt time.Time   `json:"created_at"`
	Layers    []LayerMeta `json:"layers"`
}

// LayerMeta описывает один сохранённый слой
type LayerMeta struct {
	Name           string `json:"name"`
	Resolution     int    `json:"resolution"`
	BlocksPerPixel int    `json:"blocks_per_pixel"`
	ScaleFactor    int    `json:"scale_factor"`
	Checksum       uint64 `json:"checksum"`
}

// NewMapStorage открывает хранилище снапшотов в указанной директории
func NewMapStorage(dataPath string) (*MapStorage, error) {
	dbPath := filepath.Join(dataPath, "worldmaps")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd-кодер: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd-декодер: %w", err)
	}

	return &MapStorage{
		db:      db,
		dbPath:  dbPath,
		encoder: encoder,
		decoder: decoder,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (ms *MapStorage) Close() error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if !ms.isReady {
		return nil
	}

	ms.isReady = false
	ms.encoder.Close()
	return ms.db.Close()
}

func metaKey(id string) []byte {
	return []byte(fmt.Sprintf("snapshot:%s:meta", id))
}

func layerKey(id string, index int) []byte {
	return []byte(fmt.Sprintf("snapshot:%s:layer:%d", id, index))
}

// SaveSnapshot сохраняет пирамиду и возвращает идентификатор снапшота
func (ms *MapStorage) SaveSnapshot(pyramid *mapgen.WorldMapPyramid) (string, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return "", fmt.Errorf("хранилище не готово")
	}

	id := uuid.NewString()
	meta := SnapshotMeta{
		ID:        id,
		Seed:      pyramid.Seed(),
		WorldSize: pyramid.WorldSize(),
		CreatedAt: time.Now().UTC(),
	}

	// Каждый слой пишется отдельной транзакцией: сетка детального слоя
	// может не поместиться в одну транзакцию BadgerDB. Метаданные
	// записываются последними, поэтому незавершённый снапшот не виден.
	for i := 0; i < pyramid.LayerCount(); i++ {
		layer, err := pyramid.LayerInfo(i)
		if err != nil {
			return "", err
		}

		meta.Layers = append(meta.Layers, LayerMeta{
			Name:           layer.Name,
			Resolution:     layer.Grid.Size(),
			BlocksPerPixel: layer.BlocksPerPixel,
			ScaleFactor:    layer.ScaleFactor,
			Checksum:       layer.Grid.Checksum(),
		})

		compressed := ms.encoder.EncodeAll(layer.Grid.Cells(), nil)
		err = ms.db.Update(func(txn *badger.Txn) error {
			return txn.Set(layerKey(id, i), compressed)
		})
		if err != nil {
			return "", fmt.Errorf("ошибка записи слоя %d: %w", i, err)
		}
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}
	err = ms.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(id), data)
	})
	if err != nil {
		return "", fmt.Errorf("ошибка сохранения снапшота: %w", err)
	}

	logging.GetStorageLogger().Info("Снапшот %s сохранён: сид=%d, слоёв=%d",
		id, meta.Seed, len(meta.Layers))
	return id, nil
}

// LoadMeta загружает метаданные снапшота
func (ms *MapStorage) LoadMeta(id string) (*SnapshotMeta, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := ms.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("снапшот %s не найден", id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения метаданных: %w", err)
	}

	var meta SnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("ошибка десериализации метаданных: %w", err)
	}
	return &meta, nil
}

// LoadSnapshot восстанавливает пирамиду из снапшота. Размеры и
// контрольные суммы сеток проверяются: повреждённый снапшот — ошибка,
// а не молчаливо искажённая карта.
func (ms *MapStorage) LoadSnapshot(id string) (*mapgen.WorldMapPyramid, error) {
	meta, err := ms.LoadMeta(id)
	if err != nil {
		return nil, err
	}

	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	layers := make([]mapgen.Layer, 0, len(meta.Layers))

	err = ms.db.View(func(txn *badger.Txn) error {
		for i, lm := range meta.Layers {
			item, err := txn.Get(layerKey(id, i))
			if err != nil {
				return fmt.Errorf("слой %d отсутствует: %w", i, err)
			}

			var compressed []byte
			if err := item.Value(func(val []byte) error {
				compressed = append([]byte{}, val...)
				return nil
			}); err != nil {
				return err
			}

			cells, err := ms.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return fmt.Errorf("ошибка распаковки слоя %d: %w", i, err)
			}

			grid, err := mapgen.GridFromCells(lm.Resolution, cells)
			if err != nil {
				return fmt.Errorf("слой %d: %w", i, err)
			}
			if sum := grid.Checksum(); sum != lm.Checksum {
				return fmt.Errorf("слой %d повреждён: контрольная сумма %x, ожидалась %x",
					i, sum, lm.Checksum)
			}

			layers = append(layers, mapgen.Layer{
				Name:           lm.Name,
				Grid:           grid,
				BlocksPerPixel: lm.BlocksPerPixel,
				ScaleFactor:    lm.ScaleFactor,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки снапшота %s: %w", id, err)
	}

	pyramid, err := mapgen.RestorePyramid(meta.Seed, meta.WorldSize, layers)
	if err != nil {
		return nil, fmt.Errorf("снапшот %s не согласован: %w", id, err)
	}

	logging.GetStorageLogger().Info("Снапшот %s загружен: сид=%d, слоёв=%d",
		id, meta.Seed, len(layers))
	return pyramid, nil
}

// ListSnapshots возвращает метаданные всех сохранённых снапшотов
func (ms *MapStorage) ListSnapshots() ([]SnapshotMeta, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if !ms.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var metas []SnapshotMeta
	err := ms.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("snapshot:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if len(key) < 5 || key[len(key)-5:] != ":meta" {
				continue
			}
			if err := item.Value(func(val []byte) error {
				var meta SnapshotMeta
				if err := json.Unmarshal(val, &meta); err != nil {
					return err
				}
				metas = append(metas, meta)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления снапшотов: %w", err)
	}
	return metas, nil
}
