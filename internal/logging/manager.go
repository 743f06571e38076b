package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// LoggerManager управляет логгерами отдельных компонентов
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger, nil
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай гонки
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер для %s: %w", component, err)
	}

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента или глобальный логгер при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		if defaultLogger != nil {
			return defaultLogger
		}
		// Fallback: консольный логгер без файла
		return &Logger{
			consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
			minConsoleLevel: INFO,
			minFileLevel:    ERROR,
		}
	}
	return logger
}

// CloseAll закрывает все логгеры компонентов
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("не удалось закрыть логгер %s: %w", component, err)
		}
	}

	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// GetComponentLogger возвращает логгер указанного компонента
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

// GetMapgenLogger возвращает логгер генерации карты
func GetMapgenLogger() *Logger {
	return GetComponentLogger("mapgen")
}

// GetStorageLogger возвращает логгер хранилища снапшотов
func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}

// GetAPILogger возвращает логгер REST API
func GetAPILogger() *Logger {
	return GetComponentLogger("api")
}
