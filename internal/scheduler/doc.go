// Package scheduler реализует планировщик отложенных событий поверх Redis.
//
// Время срабатывания кодируется TTL ключа-маркера, данные события лежат
// в отдельном ключе. Уведомление Redis об истечении маркера и есть тик
// таймера: listener получает ключ, читает данные и вызывает обработчик.
//
// Структура:
//   - scheduler.go  — Scheduler (New, Start, Stop, обработчики, dispatch)
//   - events.go     — Schedule, DeleteEvent, PruneData, GetEvents, InstantEvent
//   - autoconfig.go — включение keyspace-уведомлений (notify-keyspace-events)
//   - cron.go       — периодический PruneData по cron-выражению
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Store:  redisStore,
//	    Logger: logger,
//	})
//
//	sched.DefineHandler("goodbye", func(ctx context.Context, payload json.RawMessage) {
//	    logger.Info("goodbye!")
//	})
//
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
//
//	keys, ok, err := sched.Schedule(ctx, "goodbye", time.Now().Add(6*time.Second), scheduler.Options{})
//
// Ошибки хранилища в Schedule, DeleteEvent, PruneData, GetEvents и
// GetEventExpiry не возвращаются вызывающему: они логируются и превращаются
// в false или пустой результат. Ошибки сериализации payload и регистрации
// обработчиков возвращаются сразу.
package scheduler
