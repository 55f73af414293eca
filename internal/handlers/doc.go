// Package handlers содержит реестр обработчиков событий инстанса.
//
// Реестр принадлежит одному Scheduler. На одно имя события — ровно один
// обработчик: повторная регистрация возвращает ErrDuplicateHandler.
//
// Dispatch для незарегистрированного имени ничего не делает: инстанс может
// просто не интересоваться событием. Строгая политика (ErrNoHandler) живёт
// уровнем ниже, в listener.
//
// Webhook — готовый обработчик, пересылающий событие POST-запросом
// во внешний HTTP endpoint.
package handlers
